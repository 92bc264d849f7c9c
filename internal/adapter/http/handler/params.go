package handler

import (
	"math"
	"strconv"

	"auto-savings-vault/internal/adapter/http/dto"
	"auto-savings-vault/internal/adapter/http/middleware"
	"auto-savings-vault/pkg/apperror"

	"github.com/gagliardetto/solana-go"
	"github.com/gin-gonic/gin"
)

// keyParam parses a base58 public key path parameter.
func keyParam(c *gin.Context, name string) (solana.PublicKey, error) {
	pk, err := solana.PublicKeyFromBase58(c.Param(name))
	if err != nil {
		return solana.PublicKey{}, apperror.Validation("invalid " + name + ": must be a base58 public key")
	}
	return pk, nil
}

// indexParam parses the allocation index path parameter.
func indexParam(c *gin.Context) (int, error) {
	idx, err := strconv.Atoi(c.Param("index"))
	if err != nil || idx < 0 {
		return 0, apperror.Validation("invalid index: must be a non-negative integer")
	}
	return idx, nil
}

// caller returns the authenticated signer. Routes are always mounted behind
// an auth middleware, so a missing signer is a wiring bug.
func caller(c *gin.Context) (solana.PublicKey, error) {
	signer, ok := middleware.SignerFrom(c)
	if !ok {
		return solana.PublicKey{}, apperror.ErrInvalidSigner()
	}
	return signer, nil
}

// toUint8 narrows a request integer, returning onRange when it cannot fit.
func toUint8(v int, onRange *apperror.AppError) (uint8, error) {
	if v < 0 || v > math.MaxUint8 {
		return 0, onRange
	}
	return uint8(v), nil
}

// bindJSON binds and validates a JSON body, mapping failures to REQ_001.
func bindJSON(c *gin.Context, req interface{}) error {
	if err := c.ShouldBindJSON(req); err != nil {
		return apperror.Validation(err.Error())
	}
	dto.TrimStruct(req)
	return nil
}
