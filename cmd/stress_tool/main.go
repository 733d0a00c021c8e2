package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"
)

// 并发核销冒烟工具
// 注册一个手机号拿到核销码，然后并发核销同一个码，
// 预期恰好一次成功，其余全部是 "Code already used"。
// 需要目标服务以 otp.required=false 启动，注册即预验证。

var (
	baseURL    = flag.String("base", "http://localhost:8080", "target server")
	phone      = flag.String("phone", "01099887766", "phone number to register")
	password   = flag.String("password", "admin", "admin password")
	concurrent = flag.Int("n", 200, "concurrent redeem requests")
)

var httpClient *http.Client

func init() {
	t := http.DefaultTransport.(*http.Transport).Clone()
	t.MaxIdleConns = 500
	t.MaxIdleConnsPerHost = 500
	t.MaxConnsPerHost = 500
	httpClient = &http.Client{
		Transport: t,
		Timeout:   10 * time.Second,
	}
}

func postJSON(path string, body, out interface{}, headers map[string]string) (int, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return 0, err
	}

	req, err := http.NewRequest(http.MethodPost, *baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, err
	}
	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return resp.StatusCode, err
		}
	}
	return resp.StatusCode, nil
}

func main() {
	flag.Parse()

	// 1. 注册拿核销码
	var registered struct {
		UniqueCode string `json:"unique_code"`
		IsVerified bool   `json:"is_verified"`
		Discount   int    `json:"discount"`
	}
	status, err := postJSON("/api/register", map[string]string{"phone_number": *phone}, &registered, nil)
	if err != nil || status != http.StatusOK {
		fmt.Printf("register failed: status=%d err=%v\n", status, err)
		return
	}
	if !registered.IsVerified {
		fmt.Println("record is not pre-verified; start the server with otp.required=false")
		return
	}
	fmt.Printf("registered %s: %d%% discount, code %s\n", *phone, registered.Discount, registered.UniqueCode)

	// 2. 管理员登录拿令牌 (require_token 关闭时令牌为空也没关系)
	var login struct {
		Token string `json:"token"`
	}
	status, err = postJSON("/api/admin/login", map[string]string{"password": *password}, &login, nil)
	if err != nil || status != http.StatusOK {
		fmt.Printf("admin login failed: status=%d err=%v\n", status, err)
		return
	}
	headers := map[string]string{}
	if login.Token != "" {
		headers["Authorization"] = "Bearer " + login.Token
	}

	// 3. 并发核销同一个码
	fmt.Printf("firing %d concurrent redeems for %s...\n", *concurrent, registered.UniqueCode)

	var (
		wg           sync.WaitGroup
		mu           sync.Mutex
		successCount int
		usedCount    int
		otherCount   int
	)

	start := time.Now()
	for i := 0; i < *concurrent; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			var body struct {
				Error string `json:"error"`
			}
			status, err := postJSON("/api/admin/redeem", map[string]string{"code": registered.UniqueCode}, &body, headers)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil && status == http.StatusOK:
				successCount++
			case body.Error == "Code already used":
				usedCount++
			default:
				otherCount++
			}
		}()
	}
	wg.Wait()

	fmt.Printf("done in %v\n", time.Since(start))
	fmt.Printf("success=%d already_used=%d other=%d\n", successCount, usedCount, otherCount)
	if successCount == 1 {
		fmt.Println("PASS: exactly one redemption succeeded")
	} else {
		fmt.Printf("FAIL: expected exactly 1 success, got %d\n", successCount)
	}
}
