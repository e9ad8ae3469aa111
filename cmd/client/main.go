// Command client is a flag-driven CLI for submitting orders against a
// running server and printing execution/error reports as they arrive,
// grounded on the teacher's cmd/client/client.go (flag-based action
// dispatch, an async readReports goroutine, raw encoding/binary wire
// construction). Generalized to the full message set SPEC_FULL.md
// requires (new, cancel, modify, execute, delete, log) and to the new
// wire format's SymbolID/uint64 price fields in place of the teacher's
// ticker string and float64 price.
package main

import (
	"encoding/binary"
	"flag"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"strings"

	"fenrir/internal/common"
	fenrirNet "fenrir/internal/net"
)

func main() {
	serverAddr := flag.String("server", "127.0.0.1:9001", "address of the exchange server")
	owner := flag.String("owner", "", "owner username (compulsory for 'place')")
	action := flag.String("action", "place", "action: place, cancel, modify, execute, delete, log")

	symbolID := flag.Uint("symbol", 1, "symbol id")
	sideStr := flag.String("side", "buy", "order side: buy or sell")
	typeStr := flag.String("type", "limit", "order type: market, limit, stop, stop-limit, trailing-stop, trailing-stop-limit")
	tifStr := flag.String("tif", "gtc", "time in force: gtc, ioc, aon, fok")
	price := flag.Uint64("price", 0, "limit price")
	stopPrice := flag.Uint64("stop-price", 0, "stop trigger price")
	trailAmount := flag.Uint64("trail-amount", 0, "trailing stop distance")
	qty := flag.Uint64("qty", 10, "order quantity")

	orderID := flag.Uint64("order-id", 0, "order id (cancel/modify/execute/delete)")
	newOrderID := flag.Uint64("new-order-id", 0, "replacement order id (modify)")
	newPrice := flag.Uint64("new-price", 0, "replacement price (modify)")
	newQuantity := flag.Uint64("new-qty", 0, "reduced quantity (cancel)")
	execPrice := flag.Uint64("exec-price", 0, "execution price (execute); used only together with -exec-at-price")
	hasExecPrice := flag.Bool("exec-at-price", false, "set to use -exec-price instead of the resting price")

	flag.Parse()

	conn, err := net.Dial("tcp", *serverAddr)
	if err != nil {
		log.Fatalf("failed to connect to server at %s: %v", *serverAddr, err)
	}
	defer conn.Close()
	fmt.Printf("connected to %s as %q\n", *serverAddr, *owner)

	go readReports(conn)

	switch strings.ToLower(*action) {
	case "place":
		if *owner == "" {
			log.Fatal("-owner is required for 'place'")
		}
		msg := fenrirNet.NewOrderMessage{
			Type:        parseOrderType(*typeStr),
			Side:        parseSide(*sideStr),
			TimeInForce: parseTimeInForce(*tifStr),
			SymbolID:    common.SymbolID(*symbolID),
			Price:       *price,
			StopPrice:   *stopPrice,
			TrailAmount: *trailAmount,
			Quantity:    *qty,
			Username:    *owner,
		}
		if _, err := conn.Write(encodeNewOrder(msg)); err != nil {
			log.Fatalf("failed to send new order: %v", err)
		}
		fmt.Printf("-> sent new order: %s %d @ %d\n", *sideStr, *qty, *price)

	case "cancel":
		buf := make([]byte, 2+20)
		binary.BigEndian.PutUint16(buf[0:2], uint16(fenrirNet.CancelOrder))
		binary.BigEndian.PutUint32(buf[2:6], uint32(*symbolID))
		binary.BigEndian.PutUint64(buf[6:14], *orderID)
		binary.BigEndian.PutUint64(buf[14:22], *newQuantity)
		if _, err := conn.Write(buf); err != nil {
			log.Fatalf("failed to send cancel: %v", err)
		}
		fmt.Printf("-> sent cancel for order %d\n", *orderID)

	case "modify":
		buf := make([]byte, 2+28)
		binary.BigEndian.PutUint16(buf[0:2], uint16(fenrirNet.ModifyOrder))
		binary.BigEndian.PutUint32(buf[2:6], uint32(*symbolID))
		binary.BigEndian.PutUint64(buf[6:14], *orderID)
		binary.BigEndian.PutUint64(buf[14:22], *newOrderID)
		binary.BigEndian.PutUint64(buf[22:30], *newPrice)
		if _, err := conn.Write(buf); err != nil {
			log.Fatalf("failed to send modify: %v", err)
		}
		fmt.Printf("-> sent modify for order %d -> %d\n", *orderID, *newOrderID)

	case "execute":
		buf := make([]byte, 2+29)
		binary.BigEndian.PutUint16(buf[0:2], uint16(fenrirNet.ExecuteOrder))
		binary.BigEndian.PutUint32(buf[2:6], uint32(*symbolID))
		binary.BigEndian.PutUint64(buf[6:14], *orderID)
		binary.BigEndian.PutUint64(buf[14:22], *qty)
		binary.BigEndian.PutUint64(buf[22:30], *execPrice)
		if *hasExecPrice {
			buf[30] = 1
		}
		if _, err := conn.Write(buf); err != nil {
			log.Fatalf("failed to send execute: %v", err)
		}
		fmt.Printf("-> sent execute for order %d\n", *orderID)

	case "delete":
		buf := make([]byte, 2+12)
		binary.BigEndian.PutUint16(buf[0:2], uint16(fenrirNet.DeleteOrder))
		binary.BigEndian.PutUint32(buf[2:6], uint32(*symbolID))
		binary.BigEndian.PutUint64(buf[6:14], *orderID)
		if _, err := conn.Write(buf); err != nil {
			log.Fatalf("failed to send delete: %v", err)
		}
		fmt.Printf("-> sent delete for order %d\n", *orderID)

	case "log":
		buf := make([]byte, 2)
		binary.BigEndian.PutUint16(buf[0:2], uint16(fenrirNet.LogBook))
		if _, err := conn.Write(buf); err != nil {
			log.Fatalf("failed to send log request: %v", err)
		}
		fmt.Println("-> sent log request")

	default:
		log.Fatalf("unknown action: %s", *action)
	}

	fmt.Println("\nlistening for reports... (press ctrl+c to exit)")
	select {}
}

// encodeNewOrder packs m into the NewOrder wire frame: 2-byte type
// discriminator, then type/side/tif/symbol/price/stop/trail/qty/usernameLen,
// then the username bytes.
func encodeNewOrder(m fenrirNet.NewOrderMessage) []byte {
	username := []byte(m.Username)
	buf := make([]byte, 2+40+len(username))
	binary.BigEndian.PutUint16(buf[0:2], uint16(fenrirNet.NewOrder))
	buf[2] = byte(m.Type)
	buf[3] = byte(m.Side)
	buf[4] = byte(m.TimeInForce)
	binary.BigEndian.PutUint32(buf[5:9], uint32(m.SymbolID))
	binary.BigEndian.PutUint64(buf[9:17], m.Price)
	binary.BigEndian.PutUint64(buf[17:25], m.StopPrice)
	binary.BigEndian.PutUint64(buf[25:33], m.TrailAmount)
	binary.BigEndian.PutUint64(buf[33:41], m.Quantity)
	buf[41] = byte(len(username))
	copy(buf[42:], username)
	return buf
}

func parseSide(s string) common.Side {
	if strings.EqualFold(s, "sell") {
		return common.Sell
	}
	return common.Buy
}

func parseTimeInForce(s string) common.TimeInForce {
	switch strings.ToLower(s) {
	case "ioc":
		return common.IOC
	case "aon":
		return common.AON
	case "fok":
		return common.FOK
	default:
		return common.GTC
	}
}

func parseOrderType(s string) common.OrderType {
	switch strings.ToLower(s) {
	case "market":
		return common.Market
	case "stop":
		return common.Stop
	case "stop-limit":
		return common.StopLimit
	case "trailing-stop":
		return common.TrailingStop
	case "trailing-stop-limit":
		return common.TrailingStopLimit
	default:
		return common.Limit
	}
}

// readReports reads fixed-header Report frames off conn until the
// connection closes, following the teacher's readReports loop but against
// the new, simpler Report.Serialize layout (no counterparty/ticker
// fields, a plain uint64 price instead of a float64).
func readReports(conn net.Conn) {
	const fixedHeaderLen = 1 + 4 + 8 + 1 + 8 + 8 + 8 + 4
	for {
		header := make([]byte, fixedHeaderLen)
		if _, err := io.ReadFull(conn, header); err != nil {
			if err != io.EOF {
				log.Printf("connection lost: %v", err)
			}
			os.Exit(0)
		}

		msgType := fenrirNet.ReportMessageType(header[0])
		symbolID := binary.BigEndian.Uint32(header[1:5])
		orderID := binary.BigEndian.Uint64(header[5:13])
		side := common.Side(header[13])
		quantity := binary.BigEndian.Uint64(header[14:22])
		price := binary.BigEndian.Uint64(header[22:30])
		errStrLen := binary.BigEndian.Uint32(header[38:42])

		var errStr string
		if errStrLen > 0 {
			body := make([]byte, errStrLen)
			if _, err := io.ReadFull(conn, body); err != nil {
				log.Printf("error reading report body: %v", err)
				return
			}
			errStr = string(body)
		}

		if msgType == fenrirNet.ErrorReport {
			fmt.Printf("\n[ERROR] %s\n", errStr)
			continue
		}

		sideStr := "BUY"
		if side == common.Sell {
			sideStr = "SELL"
		}
		fmt.Printf("\n[EXECUTION] symbol=%d order=%d %s qty=%d price=%d\n",
			symbolID, orderID, sideStr, quantity, price)
	}
}
