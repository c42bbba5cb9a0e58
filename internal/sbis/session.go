package sbis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
)

const authMethod = "СБИС.Аутентификация.Войти"

// SessionConfig carries everything needed to acquire a session token.
type SessionConfig struct {
	Login      string
	Password   string
	AuthURL    string
	SessionTTL time.Duration
	Timeout    time.Duration
}

// SessionCache owns the single cached sid. A cached token is served without any
// network call while it is younger than the TTL; expired or invalidated entries
// are refreshed with at most one in-flight authentication call, concurrent
// callers block until that refresh resolves.
type SessionCache struct {
	cfg    SessionConfig
	client *http.Client

	mu         sync.RWMutex
	sid        string
	acquiredAt time.Time

	now func() time.Time
}

func NewSessionCache(cfg SessionConfig) *SessionCache {
	return &SessionCache{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		now:    time.Now,
	}
}

// Token returns a valid sid, refreshing it only when absent or expired.
func (s *SessionCache) Token(ctx context.Context) (string, error) {
	s.mu.RLock()
	if s.valid() {
		sid := s.sid
		s.mu.RUnlock()
		return sid, nil
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	// Another caller may have refreshed while we waited for the lock.
	if s.valid() {
		return s.sid, nil
	}

	sid, err := s.authenticate(ctx)
	if err != nil {
		return "", err
	}

	s.sid = sid
	s.acquiredAt = s.now()
	zap.S().Named("sbis").Debug("session token refreshed")
	return sid, nil
}

// Invalidate clears the cached entry so the next Token call forces a fresh
// authentication. Called when a downstream request is rejected as unauthorized.
func (s *SessionCache) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sid = ""
	s.acquiredAt = time.Time{}
}

// valid must be called with at least the read lock held.
func (s *SessionCache) valid() bool {
	return s.sid != "" && s.now().Sub(s.acquiredAt) < s.cfg.SessionTTL
}

type authRequest struct {
	JSONRPC  string     `json:"jsonrpc"`
	Protocol int        `json:"protocol"`
	Method   string     `json:"method"`
	Params   authParams `json:"params"`
	ID       int        `json:"id"`
}

type authParams struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

type authResponse struct {
	Result struct {
		Sid string `json:"sid"`
	} `json:"result"`
}

func (s *SessionCache) authenticate(ctx context.Context) (string, error) {
	if s.cfg.Login == "" || s.cfg.Password == "" {
		return "", NewErrAuth("login or password not configured")
	}

	body, err := json.Marshal(authRequest{
		JSONRPC:  "2.0",
		Protocol: 4,
		Method:   authMethod,
		Params:   authParams{Login: s.cfg.Login, Password: s.cfg.Password},
		ID:       1,
	})
	if err != nil {
		return "", NewErrAuth(err.Error())
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.AuthURL, bytes.NewReader(body))
	if err != nil {
		return "", NewErrAuth(err.Error())
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", NewErrAuth(fmt.Sprintf("auth request: %v", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", NewErrAuth(fmt.Sprintf("auth endpoint returned status %d", resp.StatusCode))
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", NewErrAuth(fmt.Sprintf("reading auth response: %v", err))
	}

	var parsed authResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", NewErrAuth(fmt.Sprintf("decoding auth response: %v", err))
	}
	if parsed.Result.Sid != "" {
		return parsed.Result.Sid, nil
	}

	// Some endpoint variants return the sid as a cookie instead of in the body.
	for _, cookie := range resp.Cookies() {
		if cookie.Name == "sid" && cookie.Value != "" {
			return cookie.Value, nil
		}
	}

	return "", NewErrAuth("no sid in auth response")
}
