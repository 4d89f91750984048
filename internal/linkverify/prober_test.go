package linkverify

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"git.home.luguber.info/inful/sitelinks/internal/config"
)

func TestNewProber_LeavesCallerClientUntouched(t *testing.T) {
	caller := &http.Client{Timeout: time.Minute}

	p := newProber(config.ExternalConfig{Timeout: "2s", MaxRedirects: 3}, caller)

	assert.NotSame(t, caller, p.client)
	assert.Equal(t, time.Minute, caller.Timeout)
	assert.Nil(t, caller.CheckRedirect)
	assert.Equal(t, 2*time.Second, p.client.Timeout)
	assert.NotNil(t, p.client.CheckRedirect)
}

func TestNewProber_RedirectPolicy(t *testing.T) {
	req, _ := http.NewRequest(http.MethodHead, "https://example.com", nil)
	via := func(n int) []*http.Request { return make([]*http.Request, n) }

	blocked := newProber(config.ExternalConfig{}, nil)
	assert.ErrorIs(t, blocked.client.CheckRedirect(req, via(1)), http.ErrUseLastResponse)

	allowed := newProber(config.ExternalConfig{AllowRedirects: true, MaxRedirects: 2}, nil)
	assert.NoError(t, allowed.client.CheckRedirect(req, via(2)))
	assert.Error(t, allowed.client.CheckRedirect(req, via(3)))
}
