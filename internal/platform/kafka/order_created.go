package kafka

import (
	"encoding/binary"
	"errors"
)

const (
	OrderCreatedTopic   = "order-created"
	OrderCreatedSubject = "order-created-value"
)

// OrderCreatedSchemaV1 is the baseline event.
const OrderCreatedSchemaV1 = `{
  "type": "record",
  "name": "OrderCreated",
  "namespace": "io.inventory.events",
  "fields": [
    {"name": "orderId", "type": "string"},
    {"name": "customerId", "type": "string"},
    {"name": "total", "type": "double"},
    {"name": "status", "type": "string"},
    {"name": "createdAt", "type": "string"}
  ]
}`

// OrderCreatedSchemaV2 adds an optional discount code; readers of V1 stay compatible.
const OrderCreatedSchemaV2 = `{
  "type": "record",
  "name": "OrderCreated",
  "namespace": "io.inventory.events",
  "fields": [
    {"name": "orderId", "type": "string"},
    {"name": "customerId", "type": "string"},
    {"name": "total", "type": "double"},
    {"name": "status", "type": "string"},
    {"name": "createdAt", "type": "string"},
    {"name": "discountCode", "type": ["null", "string"], "default": null}
  ]
}`

const wireMagicByte = 0

// EncodeWire frames an Avro body as magic byte, big-endian schema id, payload.
func EncodeWire(schemaID int, body []byte) []byte {
	out := make([]byte, 5+len(body))
	out[0] = wireMagicByte
	binary.BigEndian.PutUint32(out[1:5], uint32(schemaID))
	copy(out[5:], body)
	return out
}

// DecodeWire splits a framed message.
func DecodeWire(msg []byte) (int, []byte, error) {
	if len(msg) < 5 || msg[0] != wireMagicByte {
		return 0, nil, errors.New("not a schema registry framed message")
	}
	return int(binary.BigEndian.Uint32(msg[1:5])), msg[5:], nil
}
