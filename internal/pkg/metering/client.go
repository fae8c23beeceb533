package metering

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

// Usage 计量结果，Available=false 时 KWh 无意义，Reason 说明原因
type Usage struct {
	Available bool
	KWh       float64
	Reason    string
}

// Unavailable 构造不可用的计量结果
func Unavailable(format string, args ...interface{}) Usage {
	return Usage{Reason: fmt.Sprintf(format, args...)}
}

type calculateRequest struct {
	UserPlanID int64  `json:"userPlanId"`
	StartDate  string `json:"startDate"`
	EndDate    string `json:"endDate"`
}

type calculateResponse struct {
	UsageAmount *float64 `json:"usageAmount"`
}

// Client 外部计量服务客户端
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// CalculateAndStoreBill 请求计量服务计算并保存账单用量
// 失败不会返回 error，而是返回 Available=false 的 Usage
func (c *Client) CalculateAndStoreBill(ctx context.Context, userPlanID int64, start, end time.Time) Usage {
	if c.baseURL == "" {
		return Unavailable("metering service not configured")
	}

	body, err := json.Marshal(calculateRequest{
		UserPlanID: userPlanID,
		StartDate:  start.Format(dateLayout),
		EndDate:    end.Format(dateLayout),
	})
	if err != nil {
		return Unavailable("encode request: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/bills/calculate", bytes.NewReader(body))
	if err != nil {
		return Unavailable("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Unavailable("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Unavailable("metering api error: %d %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var out calculateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Unavailable("decode response: %v", err)
	}
	if out.UsageAmount == nil {
		return Unavailable("usageAmount missing")
	}
	if *out.UsageAmount < 0 {
		return Unavailable("negative usageAmount %v", *out.UsageAmount)
	}

	return Usage{Available: true, KWh: *out.UsageAmount}
}
