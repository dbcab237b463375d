package collector

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, status int, body string) (*httptest.Server, *url.URL) {
	t.Helper()
	last := &url.URL{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*last = *r.URL
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, last
}

func TestBinanceFetcher_FetchCandles(t *testing.T) {
	body := `[
		[1700003600000,"101.0","103.5","100.5","102.0","12.5",1700007199999,"0",1,"0","0","0"],
		[1700000000000,"100.0","102.0","99.0","101.0","10.0",1700003599999,"0",1,"0","0","0"]
	]`
	srv, reqURL := newTestServer(t, http.StatusOK, body)

	f := NewBinanceFetcher(srv.URL, "", 5*time.Second, 0)
	candles, err := f.FetchCandles(context.Background(), "BTCUSDT", "", 0)
	require.NoError(t, err)

	assert.Equal(t, "/api/v3/klines", reqURL.Path)
	assert.Equal(t, "BTCUSDT", reqURL.Query().Get("symbol"))
	assert.Equal(t, DefaultInterval, reqURL.Query().Get("interval"))
	assert.Equal(t, "200", reqURL.Query().Get("limit"))

	require.Len(t, candles, 2)
	assert.Equal(t, int64(1700000000000), candles[0].Timestamp, "rows are sorted chronologically")
	assert.Equal(t, 101.0, candles[0].Close)
	assert.Equal(t, 103.5, candles[1].High)
	assert.Equal(t, 12.5, candles[1].Volume)
}

func TestBinanceFetcher_NumericFields(t *testing.T) {
	srv, _ := newTestServer(t, http.StatusOK, `[[1,1.5,2,1,1.75,3]]`)
	f := NewBinanceFetcher(srv.URL, "", 0, 0)
	candles, err := f.FetchCandles(context.Background(), "X", "4h", 1)
	require.NoError(t, err)
	require.Len(t, candles, 1)
	assert.Equal(t, 1.75, candles[0].Close)
}

func TestBinanceFetcher_UpstreamErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		kind   UpstreamKind
	}{
		{"server error", http.StatusInternalServerError, `{"msg":"boom"}`, UpstreamStatus},
		{"rate limited", http.StatusTooManyRequests, ``, UpstreamStatus},
		{"malformed json", http.StatusOK, `{not json`, UpstreamParse},
		{"short row", http.StatusOK, `[[1,"1","2","3"]]`, UpstreamParse},
		{"bad number", http.StatusOK, `[[1,"x","2","3","4","5"]]`, UpstreamParse},
		{"NaN close", http.StatusOK, `[[1,"1","2","0.5","NaN","5"]]`, UpstreamParse},
		{"infinite high", http.StatusOK, `[[1,"1","+Inf","0.5","1","5"]]`, UpstreamParse},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := newTestServer(t, tt.status, tt.body)
			f := NewBinanceFetcher(srv.URL, "", 0, 0)
			_, err := f.FetchCandles(context.Background(), "ETHUSDT", "1h", 10)
			require.Error(t, err)

			var ue *UpstreamError
			require.True(t, errors.As(err, &ue))
			assert.Equal(t, tt.kind, ue.Kind)
			assert.Equal(t, "ETHUSDT", ue.Symbol)
			if tt.kind == UpstreamStatus {
				assert.Equal(t, tt.status, ue.StatusCode)
			}
		})
	}
}

func TestBinanceFetcher_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()

	f := NewBinanceFetcher(addr, "", time.Second, 0)
	_, err := f.FetchCandles(context.Background(), "BTCUSDT", "1h", 10)
	var ue *UpstreamError
	require.True(t, errors.As(err, &ue))
	assert.Equal(t, UpstreamNetwork, ue.Kind)
}

func TestNewBinanceFetcher_TimeoutCapped(t *testing.T) {
	f := NewBinanceFetcher("", "", time.Minute, 5)
	assert.Equal(t, MaxTimeout, f.Client.Timeout)
	assert.Equal(t, DefaultBaseURL, f.BaseURL)
}

func TestMockFetcher_Script(t *testing.T) {
	m := NewMockFetcher(100)
	boom := errors.New("boom")
	bars := TrendBars(50, 30, 0, 0)
	m.Script("A", MockResponse{Err: boom}, MockResponse{Candles: bars})

	_, err := m.FetchCandles(context.Background(), "A", "1h", 200)
	assert.ErrorIs(t, err, boom)

	got, err := m.FetchCandles(context.Background(), "A", "1h", 200)
	require.NoError(t, err)
	assert.Equal(t, bars, got)

	last, err := m.FetchCandles(context.Background(), "A", "1h", 1)
	require.NoError(t, err)
	require.Len(t, last, 1)
	assert.Equal(t, bars[len(bars)-1], last[0])
	assert.Equal(t, 3, m.Calls("A"))

	generated, err := m.FetchCandles(context.Background(), "B", "1h", 200)
	require.NoError(t, err)
	assert.Len(t, generated, 50)
}
