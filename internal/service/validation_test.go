package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/signalflags/signalflags-api/internal/models"
)

func TestValidateUserData(t *testing.T) {
	valid := models.UserRegistrationData{
		Rank:      models.RankMidshipman,
		FirstName: "Jordan",
		LastName:  "Blake",
		DeviceID:  "device-12345",
	}

	t.Run("accepts valid data", func(t *testing.T) {
		result := ValidateUserData(valid)
		assert.True(t, result.Valid)
		assert.Empty(t, result.Errors)
	})

	t.Run("accepts every rank in the closed set", func(t *testing.T) {
		for _, rank := range models.Ranks {
			data := valid
			data.Rank = rank
			assert.True(t, ValidateUserData(data).Valid, string(rank))
		}
	})

	t.Run("rejects unknown rank", func(t *testing.T) {
		data := valid
		data.Rank = "ADMIRAL"
		result := ValidateUserData(data)
		assert.False(t, result.Valid)
		require.Len(t, result.Errors, 1)
		assert.Contains(t, result.Errors[0], "rank")
	})

	t.Run("rejects blank and overlong names", func(t *testing.T) {
		data := valid
		data.FirstName = "   "
		assert.False(t, ValidateUserData(data).Valid)

		data = valid
		data.LastName = strings.Repeat("x", 51)
		assert.False(t, ValidateUserData(data).Valid)
	})

	t.Run("accepts names at the length bounds after trimming", func(t *testing.T) {
		data := valid
		data.FirstName = " A "
		data.LastName = strings.Repeat("y", 50)
		assert.True(t, ValidateUserData(data).Valid)
	})

	t.Run("rejects short device id", func(t *testing.T) {
		data := valid
		data.DeviceID = "short"
		assert.False(t, ValidateUserData(data).Valid)
	})

	t.Run("device id is optional before assignment", func(t *testing.T) {
		data := valid
		data.DeviceID = ""
		assert.True(t, ValidateUserData(data).Valid)
	})

	t.Run("reports every violated rule at once", func(t *testing.T) {
		result := ValidateUserData(models.UserRegistrationData{
			Rank:      "ADMIRAL",
			FirstName: "",
			LastName:  strings.Repeat("z", 60),
			DeviceID:  "abc",
		})
		assert.False(t, result.Valid)
		assert.Len(t, result.Errors, 4)
	})
}

func TestValidateUserUpdate(t *testing.T) {
	rank := models.RankCaptain
	badRank := models.Rank("GENERAL")
	name := "Riley"
	blank := " "

	t.Run("nil fields are ignored", func(t *testing.T) {
		assert.True(t, validateUserUpdate(models.UserUpdate{}).Valid)
	})

	t.Run("valid partial update", func(t *testing.T) {
		assert.True(t, validateUserUpdate(models.UserUpdate{Rank: &rank, FirstName: &name}).Valid)
	})

	t.Run("carried fields are checked", func(t *testing.T) {
		result := validateUserUpdate(models.UserUpdate{Rank: &badRank, LastName: &blank})
		assert.False(t, result.Valid)
		assert.Len(t, result.Errors, 2)
	})
}
