// Package upload sends evidence to the remote SOS history service.
//
// The service stores one event per upload under the account email and answers
// with the URL it assigned to the video. Uploads are attempted once; a failure
// is reported to the caller and never retried.
package upload

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"vanguard/internal/faults"
)

// Event is one SOS history entry.
type Event struct {
	AccountEmail string
	Video        []byte
	FileName     string
	ContentType  string
	Lat          float64
	Lng          float64
	Timestamp    time.Time
}

// Uploader hands an event to the remote service and returns the video URL.
type Uploader interface {
	Upload(ctx context.Context, event Event) (string, error)
}

type response struct {
	VideoURL  string `json:"videoUrl"`
	SOSEvents []struct {
		VideoURL string `json:"videoUrl"`
	} `json:"sosEvents"`
	Message string `json:"message"`
}

// Client talks to the history service over HTTP.
type Client struct {
	http *resty.Client
}

// NewClient builds a client rooted at baseURL (for example
// http://localhost:5000/api/users).
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	client := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(timeout).
		SetRetryCount(0).
		SetHeader("Accept", "application/json")
	return &Client{http: client}
}

// Upload posts event as multipart form data to /<email>/sos-events.
func (c *Client) Upload(ctx context.Context, event Event) (string, error) {
	email := strings.TrimSpace(event.AccountEmail)
	if email == "" {
		return "", faults.Wrap(faults.ErrConfiguration, "upload", "post", "account email not set", nil)
	}
	if len(event.Video) == 0 {
		return "", faults.Wrap(faults.ErrDelivery, "upload", "post", "empty video", nil)
	}
	name := event.FileName
	if name == "" {
		name = "sos-evidence.webm"
	}
	contentType := event.ContentType
	if contentType == "" {
		contentType = "video/webm"
	}
	timestamp := event.Timestamp
	if timestamp.IsZero() {
		timestamp = time.Now()
	}

	var result response
	resp, err := c.http.R().
		SetContext(ctx).
		SetMultipartField("video", name, contentType, bytes.NewReader(event.Video)).
		SetMultipartFormData(map[string]string{
			"lat":       strconv.FormatFloat(event.Lat, 'f', -1, 64),
			"lng":       strconv.FormatFloat(event.Lng, 'f', -1, 64),
			"timestamp": timestamp.UTC().Format(time.RFC3339Nano),
		}).
		SetResult(&result).
		SetError(&result).
		Post("/" + url.PathEscape(email) + "/sos-events")
	if err != nil {
		return "", faults.Wrap(faults.ErrDelivery, "upload", "post", "request failed", err)
	}
	if resp.IsError() {
		detail := result.Message
		if detail == "" {
			detail = strings.TrimSpace(resp.String())
		}
		return "", faults.Wrap(faults.ErrDelivery, "upload", "post",
			fmt.Sprintf("status %d", resp.StatusCode()), errors.New(detail))
	}

	videoURL := result.VideoURL
	if videoURL == "" && len(result.SOSEvents) > 0 {
		videoURL = result.SOSEvents[len(result.SOSEvents)-1].VideoURL
	}
	if videoURL == "" {
		return "", faults.Wrap(faults.ErrDelivery, "upload", "post", "response had no videoUrl", nil)
	}
	return videoURL, nil
}
