// Package authflow drives the OAuth callback pipeline: authorization code in,
// token exchange, identity lookup, member resolution, role grant, and
// best-effort audit notification out. Collaborators are injected as
// interfaces so the pipeline's partial-failure behavior is testable without a
// live gateway.
package authflow

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"

	"guildgate/internal/identity"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

const (
	msgMissingCode      = "認証コードがありません"
	msgAuthFailed       = "❌ 認証に失敗しました"
	locationUnavailable = "取得失敗"
)

type TokenExchanger interface {
	ExchangeCode(ctx context.Context, code string) (*oauth2.Token, error)
	FetchUser(ctx context.Context, token *oauth2.Token) (identity.User, error)
}

type MembershipService interface {
	Guild(guildID string) (*discordgo.Guild, error)
	Member(guildID, userID string) (*discordgo.Member, error)
	GrantRole(guildID, userID, roleID string) error
}

type Locator interface {
	Lookup(ctx context.Context, ip string) (string, error)
}

type Notifier interface {
	DirectMessage(userID, content string) error
}

type Config struct {
	GuildID     string
	RoleID      string
	AdminUserID string
}

type Handler struct {
	cfg      Config
	exchange TokenExchanger
	members  MembershipService
	locator  Locator
	notifier Notifier
	logger   *zap.Logger
}

func NewHandler(cfg Config, exchange TokenExchanger, members MembershipService, locator Locator, notifier Notifier, logger *zap.Logger) *Handler {
	return &Handler{
		cfg:      cfg,
		exchange: exchange,
		members:  members,
		locator:  locator,
		notifier: notifier,
		logger:   logger,
	}
}

// NewServer wires the callback handler and static assets into an HTTP server.
func NewServer(addr, staticDir string, handler *Handler) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/", http.FileServer(http.Dir(staticDir)))
	mux.HandleFunc("/callback", handler.Callback)
	return &http.Server{Addr: addr, Handler: mux}
}

// Callback handles GET /callback?code=... . Token exchange, identity fetch,
// and member resolution abort the request; role grant, geolocation, and the
// admin DM are audit side effects and never fail the user-visible outcome.
func (h *Handler) Callback(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	if code == "" {
		http.Error(w, msgMissingCode, http.StatusBadRequest)
		return
	}
	ctx := r.Context()

	token, err := h.exchange.ExchangeCode(ctx, code)
	if err != nil {
		h.logger.Error("token exchange failed", zap.Error(err))
		http.Error(w, msgAuthFailed, http.StatusInternalServerError)
		return
	}

	user, err := h.exchange.FetchUser(ctx, token)
	if err != nil {
		h.logger.Error("identity fetch failed", zap.Error(err))
		http.Error(w, msgAuthFailed, http.StatusInternalServerError)
		return
	}

	if _, err := h.members.Guild(h.cfg.GuildID); err != nil {
		h.logger.Error("guild fetch failed", zap.String("guild_id", h.cfg.GuildID), zap.Error(err))
		http.Error(w, msgAuthFailed, http.StatusInternalServerError)
		return
	}
	member, err := h.members.Member(h.cfg.GuildID, user.ID)
	if err != nil {
		h.logger.Error("member fetch failed", zap.String("user_id", user.ID), zap.Error(err))
		http.Error(w, msgAuthFailed, http.StatusInternalServerError)
		return
	}

	if member != nil {
		if err := h.members.GrantRole(h.cfg.GuildID, user.ID, h.cfg.RoleID); err != nil {
			h.logger.Warn("role grant failed", zap.String("user_id", user.ID), zap.Error(err))
		} else {
			h.logger.Info("role granted", zap.String("username", user.Username), zap.String("user_id", user.ID))
		}
	}

	ip := clientIP(r)
	location, err := h.locator.Lookup(ctx, ip)
	if err != nil {
		h.logger.Warn("geolocation lookup failed", zap.String("ip", ip), zap.Error(err))
		location = locationUnavailable
	}

	notice := fmt.Sprintf("✅ 認証完了\n🧑 ユーザー: %s (%s)\n📍 IP情報: %s", user.Username, user.ID, location)
	if err := h.notifier.DirectMessage(h.cfg.AdminUserID, notice); err != nil {
		h.logger.Warn("admin notification failed", zap.Error(err))
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintf(w, "✅ 認証が完了しました！ユーザー名: %s", user.Username)
}

// clientIP prefers the first X-Forwarded-For entry, falling back to the
// connection's remote address.
func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		if i := strings.Index(forwarded, ","); i >= 0 {
			forwarded = forwarded[:i]
		}
		return strings.TrimSpace(forwarded)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
