package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/LeventeLantos/reels-scheduler/internal/model"
)

// DefaultGraphBaseURL is the Meta Graph API version this client speaks.
const DefaultGraphBaseURL = "https://graph.facebook.com/v19.0"

// Credentials is the opaque token + account-id pair the Graph API wants on
// every call. How it is obtained (OAuth, config) is not this package's
// concern.
type Credentials struct {
	AccessToken string
	UserID      string
}

type CredentialSource interface {
	Credentials(ctx context.Context) (Credentials, error)
}

// StaticCredentials serves one fixed credential pair, typically from config.
type StaticCredentials Credentials

func (s StaticCredentials) Credentials(context.Context) (Credentials, error) {
	if s.AccessToken == "" || s.UserID == "" {
		return Credentials{}, fmt.Errorf("instagram credentials missing")
	}
	return Credentials(s), nil
}

// InstagramClient drives the Graph API reel workflow: create a media
// container, poll its status_code, publish it.
type InstagramClient struct {
	baseURL string
	creds   CredentialSource
	client  *http.Client
}

func NewInstagramClient(baseURL string, creds CredentialSource) *InstagramClient {
	if baseURL == "" {
		baseURL = DefaultGraphBaseURL
	}
	return &InstagramClient{
		baseURL: baseURL,
		creds:   creds,
		client: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

type createContainerRequest struct {
	MediaType   string `json:"media_type"`
	VideoURL    string `json:"video_url"`
	Caption     string `json:"caption"`
	AccessToken string `json:"access_token"`
}

type publishRequest struct {
	CreationID  string `json:"creation_id"`
	AccessToken string `json:"access_token"`
}

type idResponse struct {
	ID string `json:"id"`
}

type statusResponse struct {
	StatusCode string `json:"status_code"`
}

// graphError is the Graph API error envelope.
type graphError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    int    `json:"code"`
	} `json:"error"`
}

// CreateContainer registers the video with the platform and returns the
// container id it will be transcoded under.
func (c *InstagramClient) CreateContainer(ctx context.Context, videoURL, caption string) (string, error) {
	creds, err := c.creds.Credentials(ctx)
	if err != nil {
		return "", err
	}

	body, status, err := c.postJSON(ctx, fmt.Sprintf("%s/%s/media", c.baseURL, creds.UserID), createContainerRequest{
		MediaType:   "REELS",
		VideoURL:    videoURL,
		Caption:     caption,
		AccessToken: creds.AccessToken,
	})
	if err != nil {
		return "", err
	}
	if status != http.StatusOK {
		return "", fmt.Errorf("create media container: %s", remoteErrorDetail(status, body))
	}

	var out idResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("create media container: decode response: %w body=%q", err, string(body))
	}
	if out.ID == "" {
		return "", fmt.Errorf("create media container: missing id in response body=%q", string(body))
	}
	return out.ID, nil
}

// ContainerStatus reports the remote processing state of a container.
func (c *InstagramClient) ContainerStatus(ctx context.Context, containerID string) (model.ContainerState, error) {
	creds, err := c.creds.Credentials(ctx)
	if err != nil {
		return "", err
	}

	u := fmt.Sprintf("%s/%s?fields=status_code&access_token=%s",
		c.baseURL, containerID, url.QueryEscape(creds.AccessToken))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("container status: %s", remoteErrorDetail(resp.StatusCode, body))
	}

	var out statusResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("container status: decode response: %w body=%q", err, string(body))
	}

	switch out.StatusCode {
	case string(model.ContainerInProgress):
		return model.ContainerInProgress, nil
	case string(model.ContainerFinished):
		return model.ContainerFinished, nil
	default:
		// ERROR, EXPIRED and anything unrecognized are terminal.
		return model.ContainerError, nil
	}
}

// PublishContainer publishes a finished container and returns the permanent
// media id.
func (c *InstagramClient) PublishContainer(ctx context.Context, containerID string) (string, error) {
	creds, err := c.creds.Credentials(ctx)
	if err != nil {
		return "", err
	}

	body, status, err := c.postJSON(ctx, fmt.Sprintf("%s/%s/media_publish", c.baseURL, creds.UserID), publishRequest{
		CreationID:  containerID,
		AccessToken: creds.AccessToken,
	})
	if err != nil {
		return "", err
	}
	if status != http.StatusOK {
		return "", fmt.Errorf("media publish: %s", remoteErrorDetail(status, body))
	}

	var out idResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("media publish: decode response: %w body=%q", err, string(body))
	}
	if out.ID == "" {
		return "", fmt.Errorf("media publish: missing id in response body=%q", string(body))
	}
	return out.ID, nil
}

func (c *InstagramClient) postJSON(ctx context.Context, url string, payload any) ([]byte, int, error) {
	reqBody, err := json.Marshal(payload)
	if err != nil {
		return nil, 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(reqBody))
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	return body, resp.StatusCode, nil
}

// remoteErrorDetail prefers the Graph error envelope's message, falling back
// to the raw body.
func remoteErrorDetail(status int, body []byte) string {
	var ge graphError
	if err := json.Unmarshal(body, &ge); err == nil && ge.Error.Message != "" {
		return fmt.Sprintf("status=%d: %s", status, ge.Error.Message)
	}
	return fmt.Sprintf("unexpected status code: %d body=%q", status, string(body))
}
