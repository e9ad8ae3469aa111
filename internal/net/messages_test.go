package net

import (
	"encoding/binary"
	"testing"

	"fenrir/internal/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodeNewOrder(m NewOrderMessage) []byte {
	username := []byte(m.Username)
	buf := make([]byte, 2+newOrderHeaderLen+len(username))
	binary.BigEndian.PutUint16(buf[0:2], uint16(NewOrder))
	buf[2] = byte(m.Type)
	buf[3] = byte(m.Side)
	buf[4] = byte(m.TimeInForce)
	binary.BigEndian.PutUint32(buf[5:9], m.SymbolID)
	binary.BigEndian.PutUint64(buf[9:17], m.Price)
	binary.BigEndian.PutUint64(buf[17:25], m.StopPrice)
	binary.BigEndian.PutUint64(buf[25:33], m.TrailAmount)
	binary.BigEndian.PutUint64(buf[33:41], m.Quantity)
	buf[41] = byte(len(username))
	copy(buf[42:], username)
	return buf
}

func TestParseMessage_NewOrderRoundTrips(t *testing.T) {
	original := NewOrderMessage{
		Type:        common.Limit,
		Side:        common.Sell,
		TimeInForce: common.GTC,
		SymbolID:    7,
		Price:       12345,
		Quantity:    10,
		Username:    "trader-1",
	}
	parsed, err := ParseMessage(encodeNewOrder(original))
	require.NoError(t, err)

	m, ok := parsed.(*NewOrderMessage)
	require.True(t, ok)
	assert.Equal(t, original.Type, m.Type)
	assert.Equal(t, original.Side, m.Side)
	assert.Equal(t, original.SymbolID, m.SymbolID)
	assert.Equal(t, original.Price, m.Price)
	assert.Equal(t, original.Quantity, m.Quantity)
	assert.Equal(t, original.Username, m.Username)
}

func TestParseMessage_TooShortFails(t *testing.T) {
	_, err := ParseMessage([]byte{0, 1, 2})
	assert.ErrorIs(t, err, ErrMessageTooShort)
}

func TestParseMessage_UnknownTypeFails(t *testing.T) {
	buf := make([]byte, 4)
	binary.BigEndian.PutUint16(buf, 99)
	_, err := ParseMessage(buf)
	assert.ErrorIs(t, err, ErrInvalidMessageType)
}

func TestReport_SerializeRoundTripsFixedFields(t *testing.T) {
	r := Report{
		MessageType: ExecutionReport,
		SymbolID:    3,
		OrderID:     42,
		Side:        common.Buy,
		Quantity:    5,
		Price:       100,
		Timestamp:   99,
	}
	buf := r.Serialize()
	assert.Equal(t, byte(ExecutionReport), buf[0])
	assert.Equal(t, uint32(3), binary.BigEndian.Uint32(buf[1:5]))
	assert.Equal(t, uint64(42), binary.BigEndian.Uint64(buf[5:13]))
}
