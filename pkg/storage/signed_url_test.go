package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignedURLSignerGenerateAndParse(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Hour)
	token, expiresAt, err := signer.Generate("job-1", "exports/fall.csv")
	require.NoError(t, err)
	require.NotEmpty(t, token)
	require.False(t, expiresAt.IsZero())

	jobID, path, parsedExpiry, err := signer.Parse(token, false)
	require.NoError(t, err)
	assert.Equal(t, "job-1", jobID)
	assert.Equal(t, "exports/fall.csv", path)
	assert.WithinDuration(t, expiresAt, parsedExpiry, time.Second)
}

func TestSignedURLSignerExpired(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Hour)
	now := time.Now()
	signer.now = func() time.Time { return now }
	token, _, err := signer.Generate("job-1", "exports/fall.csv")
	require.NoError(t, err)

	signer.now = func() time.Time { return now.Add(2 * time.Hour) }
	_, _, _, err = signer.Parse(token, false)
	assert.ErrorIs(t, err, ErrTokenExpired)

	jobID, path, _, err := signer.Parse(token, true)
	require.NoError(t, err)
	assert.Equal(t, "job-1", jobID)
	assert.Equal(t, "exports/fall.csv", path)
}

func TestSignedURLSignerRejectsTampering(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Hour)
	token, _, err := signer.Generate("job-1", "exports/fall.csv")
	require.NoError(t, err)

	_, _, _, err = signer.Parse("job-2"+token[len("job-1"):], false)
	assert.ErrorIs(t, err, ErrTokenInvalid)
	_, _, _, err = NewSignedURLSigner("other", time.Hour).Parse(token, false)
	assert.ErrorIs(t, err, ErrTokenInvalid)
	_, _, _, err = signer.Parse("garbage", false)
	assert.ErrorIs(t, err, ErrTokenInvalid)

	_, _, err = NewSignedURLSigner("", time.Hour).Generate("job", "p")
	assert.Error(t, err)
}
