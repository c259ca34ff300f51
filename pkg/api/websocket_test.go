package api

import (
	"math/big"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gorilla/websocket"

	"github.com/uhyunpark/lockbox/pkg/chain/vm"
)

// dialWS connects to the fixture's /ws endpoint and subscribes to channels.
func dialWS(t *testing.T, f *apiFixture, channels ...string) *websocket.Conn {
	t.Helper()
	go f.server.hub.Run()

	wsURL := "ws" + strings.TrimPrefix(f.ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("ws dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	if err := conn.WriteJSON(WSSubscribeRequest{Op: "subscribe", Channels: channels}); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	// The subscription is applied by the read pump; give it a moment.
	time.Sleep(200 * time.Millisecond)
	return conn
}

// Subscribing with the checksummed address from the deploy response must
// deliver events, even though broadcasts key channels by lower-case address.
func TestEventDeliveryWithChecksummedChannel(t *testing.T) {
	f := newAPIFixture(t)
	addr := f.deployLock(t, f.chain.Now()+3600, "5000")
	if addr != common.HexToAddress(addr).Hex() {
		t.Fatalf("deploy response address not checksummed: %s", addr)
	}

	conn := dialWS(t, f, "events:"+addr)

	f.server.BroadcastEvent(vm.Event{
		Contract: common.HexToAddress(addr),
		Name:     "Withdrawal",
		Args:     map[string]interface{}{"amount": big.NewInt(5000).String()},
	})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var update EventUpdate
	if err := conn.ReadJSON(&update); err != nil {
		t.Fatalf("no event delivered to checksummed subscriber: %v", err)
	}
	if update.Name != "Withdrawal" {
		t.Errorf("event name = %q", update.Name)
	}
	if !strings.EqualFold(update.Contract, addr) {
		t.Errorf("event contract = %s, want %s", update.Contract, addr)
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	f := newAPIFixture(t)
	addr := common.HexToAddress("0x00000000000000000000000000000000000000Cc")

	conn := dialWS(t, f, "events:"+addr.Hex())
	if err := conn.WriteJSON(WSSubscribeRequest{Op: "unsubscribe", Channels: []string{"events:" + addr.Hex()}}); err != nil {
		t.Fatalf("unsubscribe: %v", err)
	}
	time.Sleep(200 * time.Millisecond)

	f.server.BroadcastEvent(vm.Event{Contract: addr, Name: "Withdrawal"})

	conn.SetReadDeadline(time.Now().Add(500 * time.Millisecond))
	var update EventUpdate
	if err := conn.ReadJSON(&update); err == nil {
		t.Errorf("event delivered after unsubscribe: %+v", update)
	}
}
