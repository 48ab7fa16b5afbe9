package authflow

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"guildgate/internal/identity"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

type fakeExchanger struct {
	exchangeCalls int
	fetchCalls    int
	exchangeErr   error
	fetchErr      error
	user          identity.User
}

func (f *fakeExchanger) ExchangeCode(ctx context.Context, code string) (*oauth2.Token, error) {
	f.exchangeCalls++
	if f.exchangeErr != nil {
		return nil, f.exchangeErr
	}
	return &oauth2.Token{AccessToken: "token"}, nil
}

func (f *fakeExchanger) FetchUser(ctx context.Context, token *oauth2.Token) (identity.User, error) {
	f.fetchCalls++
	if f.fetchErr != nil {
		return identity.User{}, f.fetchErr
	}
	return f.user, nil
}

type fakeMembers struct {
	guildErr   error
	memberErr  error
	grantErr   error
	grantCalls int
	grantedTo  string
	roleID     string
}

func (f *fakeMembers) Guild(guildID string) (*discordgo.Guild, error) {
	if f.guildErr != nil {
		return nil, f.guildErr
	}
	return &discordgo.Guild{ID: guildID}, nil
}

func (f *fakeMembers) Member(guildID, userID string) (*discordgo.Member, error) {
	if f.memberErr != nil {
		return nil, f.memberErr
	}
	return &discordgo.Member{GuildID: guildID, User: &discordgo.User{ID: userID}}, nil
}

func (f *fakeMembers) GrantRole(guildID, userID, roleID string) error {
	f.grantCalls++
	f.grantedTo = userID
	f.roleID = roleID
	return f.grantErr
}

type fakeLocator struct {
	calls    int
	lastIP   string
	location string
	err      error
}

func (f *fakeLocator) Lookup(ctx context.Context, ip string) (string, error) {
	f.calls++
	f.lastIP = ip
	if f.err != nil {
		return "", f.err
	}
	return f.location, nil
}

type fakeNotifier struct {
	calls    int
	lastUser string
	lastMsg  string
	err      error
}

func (f *fakeNotifier) DirectMessage(userID, content string) error {
	f.calls++
	f.lastUser = userID
	f.lastMsg = content
	return f.err
}

func newTestHandler(exchange *fakeExchanger, members *fakeMembers, locator *fakeLocator, notifier *fakeNotifier) *Handler {
	cfg := Config{GuildID: "g1", RoleID: "r1", AdminUserID: "admin1"}
	return NewHandler(cfg, exchange, members, locator, notifier, zap.NewNop())
}

func callback(handler *Handler, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	handler.Callback(rec, req)
	return rec
}

func TestCallbackMissingCode(t *testing.T) {
	exchange := &fakeExchanger{}
	locator := &fakeLocator{}
	notifier := &fakeNotifier{}
	handler := newTestHandler(exchange, &fakeMembers{}, locator, notifier)

	rec := callback(handler, "/callback")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
	if exchange.exchangeCalls != 0 || exchange.fetchCalls != 0 || locator.calls != 0 || notifier.calls != 0 {
		t.Fatalf("expected no outbound calls")
	}
}

func TestCallbackSuccess(t *testing.T) {
	exchange := &fakeExchanger{user: identity.User{ID: "u1", Username: "alice"}}
	members := &fakeMembers{}
	locator := &fakeLocator{location: "Tokyo Tokyo JP (1.2.3.4)"}
	notifier := &fakeNotifier{}
	handler := newTestHandler(exchange, members, locator, notifier)

	rec := callback(handler, "/callback?code=abc")
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "alice") {
		t.Fatalf("body missing username: %s", rec.Body.String())
	}
	if members.grantCalls != 1 || members.grantedTo != "u1" || members.roleID != "r1" {
		t.Fatalf("unexpected role grant: %+v", members)
	}
	if notifier.lastUser != "admin1" {
		t.Fatalf("unexpected notification target: %s", notifier.lastUser)
	}
	for _, want := range []string{"alice", "u1", "Tokyo Tokyo JP (1.2.3.4)"} {
		if !strings.Contains(notifier.lastMsg, want) {
			t.Fatalf("notification missing %q: %s", want, notifier.lastMsg)
		}
	}
}

func TestCallbackRoleGrantFailureStillSucceeds(t *testing.T) {
	exchange := &fakeExchanger{user: identity.User{ID: "u1", Username: "alice"}}
	members := &fakeMembers{grantErr: errors.New("missing permission")}
	handler := newTestHandler(exchange, members, &fakeLocator{location: "x"}, &fakeNotifier{})

	rec := callback(handler, "/callback?code=abc")
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "alice") {
		t.Fatalf("body missing username: %s", rec.Body.String())
	}
}

func TestCallbackGeolocationFailureUsesPlaceholder(t *testing.T) {
	exchange := &fakeExchanger{user: identity.User{ID: "u1", Username: "alice"}}
	notifier := &fakeNotifier{}
	handler := newTestHandler(exchange, &fakeMembers{}, &fakeLocator{err: errors.New("timeout")}, notifier)

	rec := callback(handler, "/callback?code=abc")
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
	if notifier.calls != 1 {
		t.Fatalf("expected notification despite lookup failure")
	}
	if !strings.Contains(notifier.lastMsg, locationUnavailable) {
		t.Fatalf("notification missing placeholder: %s", notifier.lastMsg)
	}
}

func TestCallbackNotifierFailureStillSucceeds(t *testing.T) {
	exchange := &fakeExchanger{user: identity.User{ID: "u1", Username: "alice"}}
	notifier := &fakeNotifier{err: errors.New("dms closed")}
	handler := newTestHandler(exchange, &fakeMembers{}, &fakeLocator{location: "x"}, notifier)

	rec := callback(handler, "/callback?code=abc")
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
}

func TestCallbackExchangeFailure(t *testing.T) {
	exchange := &fakeExchanger{exchangeErr: errors.New("invalid_grant")}
	notifier := &fakeNotifier{}
	handler := newTestHandler(exchange, &fakeMembers{}, &fakeLocator{}, notifier)

	rec := callback(handler, "/callback?code=abc")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
	if exchange.fetchCalls != 0 || notifier.calls != 0 {
		t.Fatalf("pipeline should abort after exchange failure")
	}
}

func TestCallbackIdentityFailure(t *testing.T) {
	exchange := &fakeExchanger{fetchErr: errors.New("401")}
	handler := newTestHandler(exchange, &fakeMembers{}, &fakeLocator{}, &fakeNotifier{})

	rec := callback(handler, "/callback?code=abc")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
}

func TestCallbackMemberFetchFailure(t *testing.T) {
	exchange := &fakeExchanger{user: identity.User{ID: "u1", Username: "alice"}}
	members := &fakeMembers{memberErr: errors.New("unknown member")}
	notifier := &fakeNotifier{}
	handler := newTestHandler(exchange, members, &fakeLocator{}, notifier)

	rec := callback(handler, "/callback?code=abc")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
	if members.grantCalls != 0 || notifier.calls != 0 {
		t.Fatalf("pipeline should abort before role grant")
	}
}

func TestCallbackForwardedForUsedForLookup(t *testing.T) {
	exchange := &fakeExchanger{user: identity.User{ID: "u1", Username: "alice"}}
	locator := &fakeLocator{location: "x"}
	handler := newTestHandler(exchange, &fakeMembers{}, locator, &fakeNotifier{})

	req := httptest.NewRequest(http.MethodGet, "/callback?code=abc", nil)
	req.Header.Set("X-Forwarded-For", "1.2.3.4, 5.6.7.8")
	rec := httptest.NewRecorder()
	handler.Callback(rec, req)

	if locator.lastIP != "1.2.3.4" {
		t.Fatalf("unexpected lookup address: %s", locator.lastIP)
	}
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/callback", nil)
	req.Header.Set("X-Forwarded-For", "1.2.3.4, 5.6.7.8")
	if ip := clientIP(req); ip != "1.2.3.4" {
		t.Fatalf("unexpected ip: %s", ip)
	}

	req = httptest.NewRequest(http.MethodGet, "/callback", nil)
	req.RemoteAddr = "9.8.7.6:1234"
	if ip := clientIP(req); ip != "9.8.7.6" {
		t.Fatalf("unexpected ip: %s", ip)
	}
}
