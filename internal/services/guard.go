package services

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/localnerve/kiosek/internal/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const adminCacheSize = 256

// AuthorizationGuard answers whether a token holder may act.
// Every check fails closed: lookup errors and unknown ids give false.
type AuthorizationGuard struct {
	sessions *SessionRegistry
	projects *ProjectStore
	db       *gorm.DB
	admins   *expirable.LRU[string, bool]
	log      *zap.Logger
}

// NewAuthorizationGuard creates an AuthorizationGuard. Admin lookups are cached
// for adminTTL; a zero TTL disables the cache.
func NewAuthorizationGuard(sessions *SessionRegistry, projects *ProjectStore, db *gorm.DB, adminTTL time.Duration, log *zap.Logger) *AuthorizationGuard {
	g := &AuthorizationGuard{
		sessions: sessions,
		projects: projects,
		db:       db,
		log:      log.Named("guard"),
	}
	if adminTTL > 0 {
		g.admins = expirable.NewLRU[string, bool](adminCacheSize, nil, adminTTL)
	}
	return g
}

// Identity returns the identity bound to a valid token
func (g *AuthorizationGuard) Identity(ctx context.Context, token string) (Identity, bool) {
	return g.sessions.IdentityOf(ctx, token)
}

// IsAuthenticated reports whether token is a valid session
func (g *AuthorizationGuard) IsAuthenticated(ctx context.Context, token string) bool {
	return g.sessions.Validate(ctx, token)
}

// IsOwner reports whether the token holder authored the project
func (g *AuthorizationGuard) IsOwner(ctx context.Context, projectID, token string) bool {
	identity, ok := g.sessions.IdentityOf(ctx, token)
	if !ok {
		return false
	}

	author, err := g.projects.Author(ctx, projectID)
	if err != nil {
		return false
	}
	return author == identity.Username
}

// IsAdmin reports whether the token holder is on the admin allow-list
func (g *AuthorizationGuard) IsAdmin(ctx context.Context, token string) bool {
	identity, ok := g.sessions.IdentityOf(ctx, token)
	if !ok {
		return false
	}
	return g.isAdminUsername(ctx, identity.Username)
}

func (g *AuthorizationGuard) isAdminUsername(ctx context.Context, username string) bool {
	if g.admins != nil {
		if admin, ok := g.admins.Get(username); ok {
			adminCacheLookups.WithLabelValues("hit").Inc()
			return admin
		}
		adminCacheLookups.WithLabelValues("miss").Inc()
	}

	var count int64
	if err := g.db.WithContext(ctx).
		Session(&gorm.Session{Logger: g.db.Logger.LogMode(logger.Silent)}).
		Model(&models.Admin{}).
		Where("username = ?", username).
		Count(&count).Error; err != nil {
		g.log.Warn("admin lookup failed", zap.String("username", username), zap.Error(err))
		return false
	}

	admin := count > 0
	if g.admins != nil {
		g.admins.Add(username, admin)
	}
	return admin
}
