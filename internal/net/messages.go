// Package net implements the binary wire protocol clients use to submit
// orders to an engine.Engine and receive execution reports back, plus the
// TCP server that terminates it. Framing is grounded on the teacher's
// internal/net/messages.go (fixed big-endian header + variable-length tail,
// a 2-byte message-type discriminator read first and stripped before the
// type-specific parser runs), generalized from the teacher's single
// NewOrder/CancelOrder pair to the full order lifecycle spec.md requires:
// new, cancel, modify, execute, and a book snapshot request.
package net

import (
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"fenrir/internal/common"

	"github.com/google/uuid"
)

var (
	ErrInvalidMessageType = errors.New("invalid message type")
	ErrMessageTooShort    = errors.New("message too short for its declared length")
)

// MessageType discriminates the first two bytes of every request frame.
type MessageType uint16

const (
	Heartbeat MessageType = iota
	NewOrder
	CancelOrder
	ModifyOrder
	ExecuteOrder
	DeleteOrder
	LogBook
)

// ReportMessageType discriminates the first byte of every response frame.
type ReportMessageType uint8

const (
	ExecutionReport ReportMessageType = iota
	ErrorReport
)

// Message is any parsed request frame.
type Message interface {
	GetType() MessageType
}

type BaseMessage struct {
	TypeOf MessageType
}

func (m BaseMessage) GetType() MessageType { return m.TypeOf }

// Fixed header lengths, excluding the 2-byte MessageType already stripped
// by ParseMessage.
const (
	newOrderHeaderLen     = 1 + 1 + 1 + 4 + 8 + 8 + 8 + 8 + 1 // type,side,tif,symbol,price,stop,trail,qty,usernameLen
	cancelOrderHeaderLen  = 4 + 8 + 8                         // symbol,orderID,newQuantity
	modifyOrderHeaderLen  = 4 + 8 + 8 + 8                     // symbol,orderID,newOrderID,newPrice
	executeOrderHeaderLen = 4 + 8 + 8 + 8 + 1                 // symbol,orderID,quantity,price,hasPrice
	deleteOrderHeaderLen  = 4 + 8                             // symbol,orderID
)

// ParseMessage reads the 2-byte type discriminator and dispatches to the
// matching fixed-header parser.
func ParseMessage(msg []byte) (Message, error) {
	if len(msg) < 2 {
		return nil, ErrMessageTooShort
	}
	typeOf := MessageType(binary.BigEndian.Uint16(msg[0:2]))
	msg = msg[2:]
	switch typeOf {
	case NewOrder:
		return parseNewOrder(msg)
	case CancelOrder:
		return parseCancelOrder(msg)
	case ModifyOrder:
		return parseModifyOrder(msg)
	case ExecuteOrder:
		return parseExecuteOrder(msg)
	case DeleteOrder:
		return parseDeleteOrder(msg)
	case LogBook:
		return LogBookMessage{BaseMessage{LogBook}}, nil
	default:
		return nil, ErrInvalidMessageType
	}
}

// NewOrderMessage requests admission of a brand-new order. Username
// identifies the submitting client; the wire protocol never lets a client
// choose its own order ID, mirroring the teacher's UUID stamping in
// NewOrderMessage.Order().
type NewOrderMessage struct {
	BaseMessage
	Type        common.OrderType
	Side        common.Side
	TimeInForce common.TimeInForce
	SymbolID    common.SymbolID
	Price       uint64
	StopPrice   uint64
	TrailAmount uint64
	Quantity    uint64
	Username    string
}

// Order stamps a fresh order ID from a UUID's first 8 bytes, since the
// engine's order IDs are plain uint64s rather than strings; this keeps
// IDs globally unique across clients without a central counter.
func (m *NewOrderMessage) Order() common.Order {
	id := uuid.New()
	return common.Order{
		ID:          binary.BigEndian.Uint64(id[:8]),
		Type:        m.Type,
		Side:        m.Side,
		TimeInForce: m.TimeInForce,
		SymbolID:    m.SymbolID,
		Price:       m.Price,
		StopPrice:   m.StopPrice,
		TrailAmount: m.TrailAmount,
		Quantity:    m.Quantity,
		Owner:       m.Username,
	}
}

func parseNewOrder(msg []byte) (*NewOrderMessage, error) {
	if len(msg) < newOrderHeaderLen {
		return nil, ErrMessageTooShort
	}
	m := &NewOrderMessage{BaseMessage: BaseMessage{NewOrder}}
	m.Type = common.OrderType(msg[0])
	m.Side = common.Side(msg[1])
	m.TimeInForce = common.TimeInForce(msg[2])
	m.SymbolID = binary.BigEndian.Uint32(msg[3:7])
	m.Price = binary.BigEndian.Uint64(msg[7:15])
	m.StopPrice = binary.BigEndian.Uint64(msg[15:23])
	m.TrailAmount = binary.BigEndian.Uint64(msg[23:31])
	m.Quantity = binary.BigEndian.Uint64(msg[31:39])
	usernameLen := int(msg[39])
	if len(msg) < newOrderHeaderLen+usernameLen {
		return nil, ErrMessageTooShort
	}
	m.Username = string(msg[newOrderHeaderLen : newOrderHeaderLen+usernameLen])
	return m, nil
}

type CancelOrderMessage struct {
	BaseMessage
	SymbolID    common.SymbolID
	OrderID     uint64
	NewQuantity uint64
}

func parseCancelOrder(msg []byte) (*CancelOrderMessage, error) {
	if len(msg) < cancelOrderHeaderLen {
		return nil, ErrMessageTooShort
	}
	return &CancelOrderMessage{
		BaseMessage: BaseMessage{CancelOrder},
		SymbolID:    binary.BigEndian.Uint32(msg[0:4]),
		OrderID:     binary.BigEndian.Uint64(msg[4:12]),
		NewQuantity: binary.BigEndian.Uint64(msg[12:20]),
	}, nil
}

type ModifyOrderMessage struct {
	BaseMessage
	SymbolID   common.SymbolID
	OrderID    uint64
	NewOrderID uint64
	NewPrice   uint64
}

func parseModifyOrder(msg []byte) (*ModifyOrderMessage, error) {
	if len(msg) < modifyOrderHeaderLen {
		return nil, ErrMessageTooShort
	}
	return &ModifyOrderMessage{
		BaseMessage: BaseMessage{ModifyOrder},
		SymbolID:    binary.BigEndian.Uint32(msg[0:4]),
		OrderID:     binary.BigEndian.Uint64(msg[4:12]),
		NewOrderID:  binary.BigEndian.Uint64(msg[12:20]),
		NewPrice:    binary.BigEndian.Uint64(msg[20:28]),
	}, nil
}

type ExecuteOrderMessage struct {
	BaseMessage
	SymbolID common.SymbolID
	OrderID  uint64
	Quantity uint64
	Price    uint64
	HasPrice bool
}

func parseExecuteOrder(msg []byte) (*ExecuteOrderMessage, error) {
	if len(msg) < executeOrderHeaderLen {
		return nil, ErrMessageTooShort
	}
	return &ExecuteOrderMessage{
		BaseMessage: BaseMessage{ExecuteOrder},
		SymbolID:    binary.BigEndian.Uint32(msg[0:4]),
		OrderID:     binary.BigEndian.Uint64(msg[4:12]),
		Quantity:    binary.BigEndian.Uint64(msg[12:20]),
		Price:       binary.BigEndian.Uint64(msg[20:28]),
		HasPrice:    msg[28] != 0,
	}, nil
}

type DeleteOrderMessage struct {
	BaseMessage
	SymbolID common.SymbolID
	OrderID  uint64
}

func parseDeleteOrder(msg []byte) (*DeleteOrderMessage, error) {
	if len(msg) < deleteOrderHeaderLen {
		return nil, ErrMessageTooShort
	}
	return &DeleteOrderMessage{
		BaseMessage: BaseMessage{DeleteOrder},
		SymbolID:    binary.BigEndian.Uint32(msg[0:4]),
		OrderID:     binary.BigEndian.Uint64(msg[4:12]),
	}, nil
}

type LogBookMessage struct {
	BaseMessage
}

// Report is a response frame: either an execution report for a fill, or an
// error report rejecting the request that produced it.
type Report struct {
	MessageType ReportMessageType
	SymbolID    common.SymbolID
	OrderID     uint64
	Side        common.Side
	Quantity    uint64
	Price       uint64
	Timestamp   uint64
	ErrStrLen   uint32
	Err         string
}

const reportFixedHeaderLen = 1 + 4 + 8 + 1 + 8 + 8 + 8 + 4

// Serialize packs r into its wire representation.
func (r *Report) Serialize() []byte {
	buf := make([]byte, reportFixedHeaderLen+len(r.Err))
	buf[0] = byte(r.MessageType)
	binary.BigEndian.PutUint32(buf[1:5], r.SymbolID)
	binary.BigEndian.PutUint64(buf[5:13], r.OrderID)
	buf[13] = byte(r.Side)
	binary.BigEndian.PutUint64(buf[14:22], r.Quantity)
	binary.BigEndian.PutUint64(buf[22:30], r.Price)
	binary.BigEndian.PutUint64(buf[30:38], r.Timestamp)
	binary.BigEndian.PutUint32(buf[38:42], r.ErrStrLen)
	copy(buf[reportFixedHeaderLen:], r.Err)
	return buf
}

// executionReport builds the report sent to an order's owner after a fill.
func executionReport(symbolID common.SymbolID, order common.Order) Report {
	return Report{
		MessageType: ExecutionReport,
		SymbolID:    symbolID,
		OrderID:     order.ID,
		Side:        order.Side,
		Quantity:    order.LastExecQty,
		Price:       order.LastExecPrice,
		Timestamp:   uint64(order.Timestamp),
	}
}

// errorReport builds the report sent back when a request is rejected.
func errorReport(err error) Report {
	errStr := fmt.Sprintf("%s", err)
	return Report{
		MessageType: ErrorReport,
		Timestamp:   uint64(time.Now().UnixNano()),
		ErrStrLen:   uint32(len(errStr)),
		Err:         errStr,
	}
}
