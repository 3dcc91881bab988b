package http

import (
	"database/sql"

	"github.com/rs/zerolog"

	jwtinfra "github.com/inkeddraw/backend/internal/infrastructure/jwt"
	"github.com/inkeddraw/backend/internal/infrastructure/posthog"
	"github.com/inkeddraw/backend/internal/infrastructure/postgres"
	"github.com/inkeddraw/backend/internal/infrastructure/rediscache"
	s3infra "github.com/inkeddraw/backend/internal/infrastructure/s3"
	"github.com/inkeddraw/backend/internal/infrastructure/smtp"
	"github.com/inkeddraw/backend/internal/infrastructure/sns"
	"github.com/inkeddraw/backend/internal/infrastructure/veriff"
	"github.com/inkeddraw/backend/internal/infrastructure/vision"
	"github.com/inkeddraw/backend/internal/metrics"
)

// Deps holds all infrastructure dependencies for the router. Services narrow
// these down to the small consumer interfaces they declare themselves.
type Deps struct {
	DB *sql.DB

	UserRepo         *postgres.UserRepo
	FollowRepo       *postgres.FollowRepo
	SessionRepo      *postgres.SessionRepo
	DeviceRepo       *postgres.DeviceRepo
	VerificationRepo *postgres.VerificationRepo
	CollectionRepo   *postgres.CollectionRepo
	ProductRepo      *postgres.ProductRepo
	PostRepo         *postgres.PostRepo
	ShopRepo         *postgres.ShopRepo
	SyncRepo         *postgres.SyncRepo

	Cache       *rediscache.Cache
	S3Store     *s3infra.Store
	Mailer      smtp.Mailer
	Push        sns.PushSender
	Veriff      *veriff.Client
	Vision      *vision.Annotator
	Tracker     posthog.Tracker
	JWTProvider *jwtinfra.Provider
	Metrics     *metrics.Metrics
	Log         zerolog.Logger
}
