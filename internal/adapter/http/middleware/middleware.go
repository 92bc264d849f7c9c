package middleware

import (
	"bytes"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"auto-savings-vault/internal/core/ports"
	"auto-savings-vault/pkg/apperror"
	"auto-savings-vault/pkg/response"

	"github.com/gagliardetto/solana-go"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

const (
	// Header names for signed requests
	HeaderSigner    = "X-Signer"
	HeaderSignature = "X-Signature"
	HeaderTimestamp = "X-Timestamp"
	HeaderNonce     = "X-Nonce"

	// Max timestamp drift allowed (60 seconds)
	maxTimestampDrift = 60 * time.Second

	// Nonce TTL (120 seconds)
	nonceTTL = 120 * time.Second

	// Context keys
	CtxSigner   = "signer"
	CtxAuthMode = "auth_mode"

	authModeSignature = "signature"
	authModeToken     = "token"
)

// SignerFrom returns the authenticated caller set by SignatureAuth or JWTAuth.
func SignerFrom(c *gin.Context) (solana.PublicKey, bool) {
	v, ok := c.Get(CtxSigner)
	if !ok {
		return solana.PublicKey{}, false
	}
	pk, ok := v.(solana.PublicKey)
	return pk, ok
}

// SignatureAuth verifies an ed25519 signature over the canonical request string.
// Pipeline: Check timestamp -> Check nonce -> Verify signature.
func SignatureAuth(sigSvc ports.SignatureService, nonceStore ports.NonceStore, log zerolog.Logger) gin.HandlerFunc {
	return signatureAuth(sigSvc, nonceStore, log, time.Now)
}

func signatureAuth(sigSvc ports.SignatureService, nonceStore ports.NonceStore, log zerolog.Logger, now func() time.Time) gin.HandlerFunc {
	return func(c *gin.Context) {
		signerStr := c.GetHeader(HeaderSigner)
		signature := c.GetHeader(HeaderSignature)
		timestampStr := c.GetHeader(HeaderTimestamp)
		nonce := c.GetHeader(HeaderNonce)

		if signerStr == "" || signature == "" || timestampStr == "" || nonce == "" {
			response.Error(c, apperror.ErrInvalidSigner())
			c.Abort()
			return
		}

		signer, err := solana.PublicKeyFromBase58(signerStr)
		if err != nil {
			response.Error(c, apperror.ErrInvalidSigner())
			c.Abort()
			return
		}

		// Step 1: Timestamp check
		timestamp, err := strconv.ParseInt(timestampStr, 10, 64)
		if err != nil {
			response.Error(c, apperror.ErrTimestampExpired())
			c.Abort()
			return
		}
		drift := now().Unix() - timestamp
		if drift < 0 {
			drift = -drift
		}
		if drift > int64(maxTimestampDrift.Seconds()) {
			response.Error(c, apperror.ErrTimestampExpired())
			c.Abort()
			return
		}

		// Step 2: Nonce check
		isNew, err := nonceStore.CheckAndSet(c.Request.Context(), signer.String(), nonce, nonceTTL)
		if err != nil {
			log.Warn().Err(err).Msg("nonce store error, allowing request")
		} else if !isNew {
			response.Error(c, apperror.ErrNonceUsed())
			c.Abort()
			return
		}

		// Step 3: Signature verification
		var bodyBytes []byte
		if c.Request.Body != nil {
			bodyBytes, err = io.ReadAll(c.Request.Body)
			if err != nil {
				response.Error(c, apperror.Validation("cannot read request body"))
				c.Abort()
				return
			}
		}
		c.Request.Body = io.NopCloser(bytes.NewBuffer(bodyBytes))

		canonical := sigSvc.BuildCanonicalString(
			c.Request.Method,
			c.Request.URL.Path,
			timestamp,
			nonce,
			string(bodyBytes),
		)

		if !sigSvc.Verify(signer, canonical, signature) {
			response.Error(c, apperror.ErrInvalidSignature())
			c.Abort()
			return
		}

		c.Set(CtxSigner, signer)
		c.Set(CtxAuthMode, authModeSignature)
		c.Next()
	}
}

// JWTAuth validates read-session tokens issued by the login endpoint.
func JWTAuth(tokenSvc ports.TokenService, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		tokenStr, ok := strings.CutPrefix(authHeader, "Bearer ")
		if !ok || tokenStr == "" {
			response.Error(c, apperror.ErrInvalidToken())
			c.Abort()
			return
		}

		claims, err := tokenSvc.Validate(tokenStr)
		if err != nil {
			log.Debug().Err(err).Msg("token rejected")
			response.Error(c, apperror.ErrInvalidToken())
			c.Abort()
			return
		}

		c.Set(CtxSigner, claims.Signer)
		c.Set(CtxAuthMode, authModeToken)
		c.Next()
	}
}

// RequestLogger creates a middleware that logs every HTTP request.
func RequestLogger(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)
		status := c.Writer.Status()

		event := log.Info()
		if status >= http.StatusInternalServerError {
			event = log.Error()
		} else if status >= http.StatusBadRequest {
			event = log.Warn()
		}

		if signer, ok := SignerFrom(c); ok {
			event = event.Str("signer", signer.String())
		}

		event.
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", status).
			Dur("latency", latency).
			Str("client_ip", c.ClientIP()).
			Msg("http request")
	}
}

// Recovery creates a panic recovery middleware.
func Recovery(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.Error().Interface("panic", r).Str("path", c.Request.URL.Path).Msg("panic recovered")
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"error_code": "SYS_001",
					"message":    "Internal server error",
				})
			}
		}()
		c.Next()
	}
}
