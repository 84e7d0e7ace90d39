package middleware

import (
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetClaims_RoundTrip(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())

	userID := uuid.New()
	c.Set(ClaimsKey, &JWTClaims{UserID: userID.String(), Username: "worker1", Role: "staff"})

	claims := GetClaims(c)
	require.NotNil(t, claims)
	assert.Equal(t, "staff", claims.Role)

	actor := ActorID(c)
	require.NotNil(t, actor)
	assert.Equal(t, userID, *actor)
}

func TestGetClaims_AbsentOrMalformed(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())

	// No JWTAuth ran on this request.
	assert.Nil(t, GetClaims(c))
	assert.Nil(t, ActorID(c))

	c.Set(ClaimsKey, &JWTClaims{UserID: "not-a-uuid"})
	require.NotNil(t, GetClaims(c))
	assert.Nil(t, ActorID(c))
}
