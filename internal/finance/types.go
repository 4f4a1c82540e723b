package finance

import (
	"math"
	"time"
)

// yahooChartResp mirrors Yahoo v8 chart response (trimmed to needed fields).
// Closes are pointers because Yahoo emits null for days without a print.
type yahooChartResp struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Currency  string `json:"currency"`
				Timezone  string `json:"timezone"`
				GmtOffset int    `json:"gmtoffset"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Close []*float64 `json:"close"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *yahooError `json:"error"`
	} `json:"chart"`
}

// yahooSparkResp mirrors Yahoo v7 spark fallback (trimmed)
type yahooSparkResp struct {
	Spark struct {
		Result []struct {
			Symbol   string `json:"symbol"`
			Response []struct {
				Timestamp  []int64 `json:"timestamp"`
				Indicators struct {
					Quote []struct {
						Close []*float64 `json:"close"`
					} `json:"quote"`
				} `json:"indicators"`
			} `json:"response"`
		} `json:"result"`
		Error *yahooError `json:"error"`
	} `json:"spark"`
}

type yahooError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

func (r yahooChartResp) series() ([]int64, []float64, bool) {
	if len(r.Chart.Result) == 0 || len(r.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, nil, false
	}
	res := r.Chart.Result[0]
	return res.Timestamp, derefCloses(res.Indicators.Quote[0].Close), len(res.Timestamp) > 0
}

func (r yahooSparkResp) series() ([]int64, []float64, bool) {
	if len(r.Spark.Result) == 0 || len(r.Spark.Result[0].Response) == 0 {
		return nil, nil, false
	}
	res := r.Spark.Result[0].Response[0]
	if len(res.Indicators.Quote) == 0 {
		return nil, nil, false
	}
	return res.Timestamp, derefCloses(res.Indicators.Quote[0].Close), len(res.Timestamp) > 0
}

func derefCloses(in []*float64) []float64 {
	out := make([]float64, len(in))
	for i, p := range in {
		if p == nil {
			out[i] = math.NaN()
			continue
		}
		out[i] = *p
	}
	return out
}

// Chart image cache entry
type chartCacheEntry struct {
	createdAt time.Time
	image     []byte
}

const chartCacheTTL = 10 * time.Minute
