package http

import (
	"github.com/go-accounts-api/internal/infrastructure/dynamo"
	jwtinfra "github.com/go-accounts-api/internal/infrastructure/jwt"
	s3infra "github.com/go-accounts-api/internal/infrastructure/s3"
	"github.com/go-accounts-api/internal/infrastructure/smtp"
)

// Deps holds all infrastructure dependencies for the router.
type Deps struct {
	UserRepo    *dynamo.UserRepo
	ProfileRepo *dynamo.ProfileRepo
	SessionRepo *dynamo.SessionRepo
	OTPRepo     *dynamo.OTPRepo
	S3Store     *s3infra.Store
	Mailer      smtp.Mailer
	JWTProvider *jwtinfra.Provider
}
