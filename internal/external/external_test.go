package external_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kjannette/trahn-pnl/internal/external"
	"github.com/kjannette/trahn-pnl/internal/solana"
)

const (
	wallet   = "9WzDXwBbmkg8ZTbNMqUxvQRAyrZzDsGYdLVL9zYtAWWM"
	bonkMint = "DezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263"
	wifMint  = "EKpQGSJtjMFqKZ9KQanSqYXRcF8fBopzLHYxdM65zcjm"
)

func swapTx(sig string, ts int64) external.EnhancedTransaction {
	return external.EnhancedTransaction{
		Signature: sig,
		Timestamp: ts,
		Type:      "SWAP",
		TokenTransfers: []external.TokenTransfer{
			{FromUserAccount: "pool", ToUserAccount: wallet, TokenAmount: 1000, Mint: bonkMint},
		},
		NativeTransfers: []external.NativeTransfer{
			{FromUserAccount: wallet, ToUserAccount: "pool", Amount: 250_000_000},
		},
	}
}

func TestHeliusListSwaps_Paginates(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if !strings.HasSuffix(r.URL.Path, "/v0/addresses/"+wallet+"/transactions") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("type") != "SWAP" || r.URL.Query().Get("api-key") != "k" {
			t.Errorf("missing query params: %s", r.URL.RawQuery)
		}

		var page []external.EnhancedTransaction
		switch r.URL.Query().Get("before") {
		case "":
			if r.URL.Query().Get("limit") != "100" {
				t.Errorf("first page limit = %s, want 100", r.URL.Query().Get("limit"))
			}
			for i := 0; i < 100; i++ {
				page = append(page, swapTx(fmt.Sprintf("sig%d", i), int64(2000-i)))
			}
			page[5].TransactionError = map[string]any{"InstructionError": []any{0, "Custom"}}
		case "sig99":
			if r.URL.Query().Get("limit") != "20" {
				t.Errorf("second page limit = %s, want 20", r.URL.Query().Get("limit"))
			}
			for i := 100; i < 120; i++ {
				page = append(page, swapTx(fmt.Sprintf("sig%d", i), int64(2000-i)))
			}
		default:
			t.Errorf("unexpected cursor %q", r.URL.Query().Get("before"))
		}
		json.NewEncoder(w).Encode(page)
	}))
	defer srv.Close()

	client := external.NewHeliusClient("k", srv.URL, 5*time.Second)
	recs, err := client.ListSwaps(context.Background(), wallet, 120)
	if err != nil {
		t.Fatalf("ListSwaps: %v", err)
	}
	if calls.Load() != 2 {
		t.Fatalf("expected 2 page requests, got %d", calls.Load())
	}
	if len(recs) != 119 {
		t.Fatalf("expected 119 records (one failed tx dropped), got %d", len(recs))
	}

	first := recs[0]
	if first.Signature != "sig0" || first.Timestamp.Unix() != 2000 {
		t.Fatalf("unexpected first record: %+v", first)
	}
	if len(first.Transfers) != 2 {
		t.Fatalf("expected token + native leg, got %d", len(first.Transfers))
	}
	native := first.Transfers[1]
	if !native.Native || native.Mint != solana.NativeMint || native.Amount != 0.25 {
		t.Fatalf("native leg not normalised: %+v", native)
	}
}

func TestHeliusListSwaps_MalformedPayloadIsEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error":"something odd"}`))
	}))
	defer srv.Close()

	client := external.NewHeliusClient("k", srv.URL, 5*time.Second)
	recs, err := client.ListSwaps(context.Background(), wallet, 100)
	if err != nil {
		t.Fatalf("malformed payload should not error, got %v", err)
	}
	if len(recs) != 0 {
		t.Fatalf("expected no records, got %d", len(recs))
	}
}

func TestHeliusListSwaps_UpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte("invalid api key"))
	}))
	defer srv.Close()

	client := external.NewHeliusClient("bad", srv.URL, 5*time.Second)
	if _, err := client.ListSwaps(context.Background(), wallet, 100); err == nil {
		t.Fatal("expected error on 401")
	}
}

func TestDexScreenerQuotes_PicksMostLiquidPair(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/tokens/v1/solana/"+bonkMint+","+wifMint {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(`[
			{"chainId":"solana","baseToken":{"address":"` + bonkMint + `","name":"Bonk","symbol":"Bonk"},
			 "quoteToken":{"address":"EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"},
			 "priceNative":"0.00002","priceUsd":"0.00002","liquidity":{"usd":1000}},
			{"chainId":"solana","baseToken":{"address":"` + bonkMint + `","name":"Bonk","symbol":"Bonk"},
			 "quoteToken":{"address":"` + solana.NativeMint + `"},
			 "priceNative":"0.0000001","priceUsd":"0.00002","liquidity":{"usd":50000},
			 "info":{"imageUrl":"https://img/bonk.png"}},
			{"chainId":"solana","baseToken":{"address":"` + wifMint + `","name":"dogwifhat","symbol":"WIF"},
			 "quoteToken":{"address":"EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"},
			 "priceNative":"1.5","priceUsd":"1.5","liquidity":{"usd":90000}},
			{"chainId":"solana","baseToken":{"address":"SomethingElse1111111111111111111111111111111","symbol":"X"},
			 "quoteToken":{"address":"` + solana.NativeMint + `"},"priceNative":"1","priceUsd":"1"}
		]`))
	}))
	defer srv.Close()

	client := external.NewDexScreenerClient(srv.URL, 5*time.Second)
	quotes, err := client.Quotes(context.Background(), []string{bonkMint, wifMint})
	if err != nil {
		t.Fatalf("Quotes: %v", err)
	}
	if len(quotes) != 2 {
		t.Fatalf("expected 2 quotes, got %d", len(quotes))
	}

	bonk := quotes[bonkMint]
	if bonk.PriceNative != 0.0000001 || bonk.Image != "https://img/bonk.png" || bonk.Symbol != "Bonk" {
		t.Fatalf("bonk should come from the SOL pair: %+v", bonk)
	}
	wif := quotes[wifMint]
	if wif.PriceNative != 0 || wif.PriceUSD != 1.5 {
		t.Fatalf("wif is USDC-quoted, expected USD price only: %+v", wif)
	}
}

func TestDexScreenerQuotes_IgnoresNonFinitePrices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[
			{"chainId":"solana","baseToken":{"address":"` + bonkMint + `","name":"Bonk","symbol":"Bonk"},
			 "quoteToken":{"address":"` + solana.NativeMint + `"},
			 "priceNative":"NaN","priceUsd":"Infinity","liquidity":{"usd":1000}},
			{"chainId":"solana","baseToken":{"address":"` + wifMint + `","name":"dogwifhat","symbol":"WIF"},
			 "quoteToken":{"address":"` + solana.NativeMint + `"},
			 "priceNative":"+Inf","priceUsd":"-Inf","liquidity":{"usd":1000}}
		]`))
	}))
	defer srv.Close()

	client := external.NewDexScreenerClient(srv.URL, 5*time.Second)
	quotes, err := client.Quotes(context.Background(), []string{bonkMint, wifMint})
	if err != nil {
		t.Fatalf("Quotes: %v", err)
	}
	for mint, q := range quotes {
		if q.PriceNative != 0 || q.PriceUSD != 0 {
			t.Fatalf("%s: non-finite price leaked through: %+v", mint, q)
		}
	}
	if quotes[bonkMint].Symbol != "Bonk" {
		t.Fatalf("metadata should survive an unusable price: %+v", quotes[bonkMint])
	}
}

func TestDexScreenerQuotes_RejectsOversizedBatch(t *testing.T) {
	client := external.NewDexScreenerClient("http://unused", time.Second)
	mints := make([]string, external.DexScreenerMaxBatch+1)
	if _, err := client.Quotes(context.Background(), mints); err == nil {
		t.Fatal("expected error for oversized batch")
	}
}

func TestCoinGeckoQuotes_MapsKeysBackToMints(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-cg-demo-api-key") != "demo" {
			t.Errorf("missing api key header")
		}
		switch r.URL.Path {
		case "/simple/token_price/solana":
			w.Write([]byte(`{"` + strings.ToLower(bonkMint) + `":{"usd":0.00002},"` + wifMint + `":{"usd":0}}`))
		case "/simple/price":
			w.Write([]byte(`{"solana":{"usd":200}}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	client := external.NewCoinGeckoClient(srv.URL, "demo", 5*time.Second)
	quotes, err := client.Quotes(context.Background(), []string{bonkMint, wifMint})
	if err != nil {
		t.Fatalf("Quotes: %v", err)
	}
	if len(quotes) != 1 || quotes[bonkMint].PriceUSD != 0.00002 {
		t.Fatalf("unexpected quotes: %+v", quotes)
	}

	sol, err := client.ReferenceUSDPrice(context.Background())
	if err != nil {
		t.Fatalf("ReferenceUSDPrice: %v", err)
	}
	if sol != 200 {
		t.Fatalf("expected 200, got %f", sol)
	}
}
