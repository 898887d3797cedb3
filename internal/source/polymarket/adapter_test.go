package polymarket

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"slices"
	"strconv"
	"testing"
	"time"

	"github.com/rickgao/market-pulse/internal/api"
	"github.com/rickgao/market-pulse/internal/model"
	"github.com/rickgao/market-pulse/internal/source"
)

func newClient(t *testing.T, handler http.HandlerFunc) *api.Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return api.NewClient("polymarket", server.URL, "", api.WithRetries(0, time.Millisecond))
}

func TestListMarkets_OffsetPagination(t *testing.T) {
	var offsets []string
	gamma := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if r.URL.Path != "/markets" {
			t.Errorf("path = %q, want /markets", r.URL.Path)
		}
		if q.Get("active") != "true" || q.Get("closed") != "false" {
			t.Errorf("filters = active=%q closed=%q", q.Get("active"), q.Get("closed"))
		}
		offsets = append(offsets, q.Get("offset"))
		offset, _ := strconv.Atoi(q.Get("offset"))
		switch offset {
		case 0:
			w.Write([]byte(`[{"id":"1","conditionId":"0xa"},{"id":"2","conditionId":"0xb"}]`))
		case 2:
			w.Write([]byte(`[{"id":"3"}]`))
		case 3:
			w.Write([]byte(`[]`))
		default:
			t.Errorf("unexpected offset %d", offset)
		}
	})

	a := New(gamma, nil, Options{PageSize: 2})
	var ids []string
	var stats source.PageStats
	for m := range a.ListMarkets(context.Background(), &stats) {
		ids = append(ids, m.ID())
	}

	if !slices.Equal(ids, []string{"0xa", "0xb", "3"}) {
		t.Errorf("ids = %v, want [0xa 0xb 3]", ids)
	}
	if !slices.Equal(offsets, []string{"0", "2", "3"}) {
		t.Errorf("offsets = %v, want [0 2 3]", offsets)
	}
}

func TestListMarkets_ServerCapsPageSize(t *testing.T) {
	const total, serverMax = 250, 100
	var requests int
	gamma := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		requests++
		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
		end := min(offset+serverMax, total)
		items := make([]map[string]string, 0, serverMax)
		for i := offset; i < end; i++ {
			items = append(items, map[string]string{"id": strconv.Itoa(i)})
		}
		json.NewEncoder(w).Encode(items)
	})

	a := New(gamma, nil, Options{PageSize: 500})
	var n int
	var stats source.PageStats
	for range a.ListMarkets(context.Background(), &stats) {
		n++
	}

	if n != total {
		t.Errorf("markets = %d, want %d", n, total)
	}
	// Three capped pages plus the empty one that ends the listing.
	if requests != 4 {
		t.Errorf("requests = %d, want 4", requests)
	}
	if stats.Truncated {
		t.Errorf("listing truncated: %v", stats.Err)
	}
}

func TestListMarkets_MalformedRecordSkipped(t *testing.T) {
	gamma := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("offset") {
		case "0":
			w.Write([]byte(`[{"id":"1","volumeNum":"N/A"},{"id":"2","volumeNum":5}]`))
		case "2":
			w.Write([]byte(`[{"id":"3"}]`))
		default:
			w.Write([]byte(`[]`))
		}
	})

	a := New(gamma, nil, Options{PageSize: 2})
	var ids []string
	var stats source.PageStats
	for m := range a.ListMarkets(context.Background(), &stats) {
		ids = append(ids, m.ID())
	}

	if !slices.Equal(ids, []string{"2", "3"}) {
		t.Errorf("ids = %v, want [2 3]", ids)
	}
	if stats.Malformed != 1 {
		t.Errorf("Malformed = %d, want 1", stats.Malformed)
	}
	if stats.Truncated {
		t.Errorf("listing truncated: %v", stats.Err)
	}
}

func TestListMarkets_WrapAroundGuard(t *testing.T) {
	var requests int
	// A server that ignores offset and keeps serving the same full page.
	gamma := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.Write([]byte(`[{"id":"1"},{"id":"2"}]`))
	})

	a := New(gamma, nil, Options{PageSize: 2})
	var n int
	for range a.ListMarkets(context.Background(), nil) {
		n++
	}
	if n != 2 {
		t.Errorf("markets = %d, want 2", n)
	}
	if requests != 2 {
		t.Errorf("requests = %d, want 2", requests)
	}
}

func TestListEvents(t *testing.T) {
	gamma := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/events" {
			t.Errorf("path = %q, want /events", r.URL.Path)
		}
		w.Write([]byte(`[
			{"id":"903","title":"Fed decision in March","tags":[{"label":"Economy"},{"label":"Fed Rates"}]},
			{"id":"904","slug":"super-bowl","category":"Sports"}
		]`))
	})

	events := New(gamma, nil, Options{PageSize: 10}).ListEvents(context.Background(), nil)
	if len(events) != 2 {
		t.Fatalf("len(events) = %d, want 2", len(events))
	}
	if !slices.Equal(events["903"].Tags, []string{"Economy", "Fed Rates"}) {
		t.Errorf("tags = %v", events["903"].Tags)
	}
	if events["904"].Title != "super-bowl" {
		t.Errorf("Title = %q, want slug fallback", events["904"].Title)
	}
}

func TestMarket_Fields(t *testing.T) {
	raw := `{
		"id": "12",
		"conditionId": "0xcond",
		"question": "Will it rain?",
		"description": "Resolves...",
		"category": "Weather",
		"endDate": "2030-06-01T00:00:00Z",
		"active": true,
		"closed": false,
		"outcomes": "[\"Yes\", \"No\"]",
		"outcomePrices": "[\"0.62\", \"0.38\"]",
		"lastTradePrice": 0.61,
		"bestBid": 0.6,
		"bestAsk": 0.63,
		"volumeNum": 12345.5,
		"liquidityNum": "800.25",
		"events": [{"id": "77", "title": "Weather"}]
	}`
	var m gammaMarket
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	pm := Market{m: m}

	if pm.ID() != "0xcond" {
		t.Errorf("ID() = %q, want 0xcond", pm.ID())
	}
	if pm.EventKey() != "77" {
		t.Errorf("EventKey() = %q, want 77", pm.EventKey())
	}
	if st, ok := pm.Status(); !ok || st != model.StatusTrading {
		t.Errorf("Status() = %v, %v", st, ok)
	}

	p := pm.Prices()
	if p.Unit != source.UnitFraction {
		t.Errorf("Unit = %v, want fraction", p.Unit)
	}
	if p.YesBid == nil || *p.YesBid != 0.6 {
		t.Errorf("YesBid = %v, want 0.6", p.YesBid)
	}
	if p.NoBid == nil || fmt.Sprintf("%.2f", *p.NoBid) != "0.37" {
		t.Errorf("NoBid = %v, want 0.37", p.NoBid)
	}

	outs := pm.Outcomes()
	if len(outs) != 2 || outs[0].Name != "Yes" || outs[0].Price != 0.62 || outs[1].Name != "No" {
		t.Errorf("Outcomes() = %+v", outs)
	}
	if pm.Volume() != 12345.5 {
		t.Errorf("Volume() = %v", pm.Volume())
	}
	if l := pm.Liquidity(); l == nil || *l != 800.25 {
		t.Errorf("Liquidity() = %v", l)
	}
}

func TestMarket_ClosedAndNoBook(t *testing.T) {
	var m gammaMarket
	if err := json.Unmarshal([]byte(`{"id":"5","closed":true,"active":true,"bestBid":0.2,"outcomes":["A","B"],"outcomePrices":[0.3,"x"]}`), &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	pm := Market{m: m}
	if st, ok := pm.Status(); !ok || st != model.StatusClosed {
		t.Errorf("Status() = %v, %v, want CLOSED", st, ok)
	}
	if p := pm.Prices(); p.YesBid != nil || p.NoBid != nil {
		t.Errorf("one-sided book should yield no quotes, got %+v", p)
	}
	if outs := pm.Outcomes(); len(outs) != 1 || outs[0].Name != "A" || outs[0].Price != 0.3 {
		t.Errorf("Outcomes() = %+v", outs)
	}
}

func TestFetchTradeTape(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	since := now.Add(-24 * time.Hour)

	var offsets []string
	data := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if r.URL.Path != "/trades" {
			t.Errorf("path = %q, want /trades", r.URL.Path)
		}
		if q.Get("market") != "0xcond" {
			t.Errorf("market = %q, want 0xcond", q.Get("market"))
		}
		offsets = append(offsets, q.Get("offset"))
		switch q.Get("offset") {
		case "0":
			fmt.Fprintf(w, `[
				{"transactionHash":"0x1","size":10,"price":0.45,"timestamp":%d},
				{"transactionHash":"0x2","size":"5","price":"0.5","timestamp":%d}
			]`, now.Add(-time.Hour).Unix(), now.Add(-2*time.Hour).Unix())
		case "2":
			fmt.Fprintf(w, `[
				{"transactionHash":"0x3","size":7,"price":0.4,"timestamp":%d},
				{"transactionHash":"0x4","size":1,"price":0.4,"timestamp":%d}
			]`, now.Add(-23*time.Hour).Unix(), now.Add(-30*time.Hour).Unix())
		default:
			t.Errorf("unexpected offset %q", q.Get("offset"))
		}
	})

	a := New(nil, data, Options{TradePageSize: 2})
	tape, err := a.FetchTradeTape(context.Background(), "0xcond", since)
	if err != nil {
		t.Fatalf("FetchTradeTape failed: %v", err)
	}

	if len(tape) != 3 {
		t.Fatalf("len(tape) = %d, want 3", len(tape))
	}
	if tape[1].Size != 5 || tape[1].Price != 0.5 {
		t.Errorf("tape[1] = %+v", tape[1])
	}
	if !slices.Equal(offsets, []string{"0", "2"}) {
		t.Errorf("offsets = %v, want [0 2]", offsets)
	}
}

func TestFetchTradeTape_ServerError(t *testing.T) {
	data := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := New(nil, data, Options{}).FetchTradeTape(context.Background(), "0xcond", time.Now())
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if api.IsNotFound(err) {
		t.Error("500 should not be reported as not found")
	}
}

func TestStringList(t *testing.T) {
	tests := []struct {
		input string
		want  []string
	}{
		{`"[\"Yes\", \"No\"]"`, []string{"Yes", "No"}},
		{`["Yes","No"]`, []string{"Yes", "No"}},
		{`[0.5, "0.5"]`, []string{"0.5", "0.5"}},
		{`""`, nil},
		{`null`, nil},
	}
	for _, tt := range tests {
		var l stringList
		if err := json.Unmarshal([]byte(tt.input), &l); err != nil {
			t.Errorf("Unmarshal(%s) error: %v", tt.input, err)
			continue
		}
		if !slices.Equal([]string(l), tt.want) {
			t.Errorf("Unmarshal(%s) = %v, want %v", tt.input, l, tt.want)
		}
	}
}
