// Command client is a minimal demo CLI for placing, cancelling, and
// inspecting orders against a running gateway.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
)

func main() {
	serverAddr := flag.String("server", "http://127.0.0.1:8080", "gateway base URL")
	action := flag.String("action", "place", "action to perform: ['place', 'cancel', 'snapshot', 'bbo']")

	symbol := flag.String("symbol", "BTC-USDT", "trading symbol")
	side := flag.String("side", "buy", "order side: 'buy' or 'sell'")
	orderType := flag.String("type", "limit", "order type: 'market', 'limit', 'ioc', or 'fok'")
	price := flag.String("price", "", "limit price (required unless -type=market)")
	qty := flag.String("qty", "1", "order quantity")

	id := flag.String("id", "", "order id (required for -action=cancel)")
	depth := flag.Int("depth", 10, "depth levels requested by -action=snapshot")

	flag.Parse()

	switch *action {
	case "place":
		placeOrder(*serverAddr, *symbol, *side, *orderType, *price, *qty)
	case "cancel":
		if *id == "" {
			log.Fatal("-id is required for -action=cancel")
		}
		cancelOrder(*serverAddr, *symbol, *id)
	case "snapshot":
		snapshot(*serverAddr, *symbol, *depth)
	case "bbo":
		bbo(*serverAddr, *symbol)
	default:
		log.Fatalf("unknown action: %s", *action)
	}
}

func placeOrder(base, symbol, side, orderType, price, qty string) {
	body := map[string]string{
		"symbol":     symbol,
		"side":       side,
		"order_type": orderType,
		"quantity":   qty,
	}
	if price != "" {
		body["limit_price"] = price
	}
	post(base+"/v1/orders", body)
}

func cancelOrder(base, symbol, id string) {
	req, err := http.NewRequest(http.MethodDelete, fmt.Sprintf("%s/v1/orders/%s/%s", base, symbol, id), nil)
	if err != nil {
		log.Fatalf("build request: %v", err)
	}
	do(req)
}

func snapshot(base, symbol string, depth int) {
	get(fmt.Sprintf("%s/v1/books/%s?depth=%d", base, symbol, depth))
}

func bbo(base, symbol string) {
	get(fmt.Sprintf("%s/v1/books/%s/bbo", base, symbol))
}

func post(url string, body map[string]string) {
	buf, err := json.Marshal(body)
	if err != nil {
		log.Fatalf("marshal request: %v", err)
	}
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(buf))
	if err != nil {
		log.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	do(req)
}

func get(url string) {
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		log.Fatalf("build request: %v", err)
	}
	do(req)
}

func do(req *http.Request) {
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		log.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	out, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Fatalf("read response: %v", err)
	}
	fmt.Println(string(out))
}
