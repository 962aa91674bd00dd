package notify

import (
	"encoding/json"

	"github.com/aristath/stockcart/internal/events"
	"github.com/vmihailenco/msgpack/v5"
	"nhooyr.io/websocket"
)

// Subprotocols a client may request on upgrade. JSON is the default.
const (
	SubprotocolJSON    = "json"
	SubprotocolMsgpack = "msgpack"
)

// Codec turns an event into a websocket frame
type Codec interface {
	Encode(event events.CartEvent) ([]byte, error)
	MessageType() websocket.MessageType
}

type jsonCodec struct{}

func (jsonCodec) Encode(event events.CartEvent) ([]byte, error) { return json.Marshal(event) }
func (jsonCodec) MessageType() websocket.MessageType           { return websocket.MessageText }

type msgpackCodec struct{}

func (msgpackCodec) Encode(event events.CartEvent) ([]byte, error) { return msgpack.Marshal(event) }
func (msgpackCodec) MessageType() websocket.MessageType           { return websocket.MessageBinary }

// CodecFor returns the codec for a negotiated subprotocol
func CodecFor(subprotocol string) Codec {
	if subprotocol == SubprotocolMsgpack {
		return msgpackCodec{}
	}
	return jsonCodec{}
}
