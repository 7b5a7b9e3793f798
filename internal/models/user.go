package models

import "time"

// Rank represents the closed set of cadet ranks a user can register with.
type Rank string

const (
	RankOfficerCadet Rank = "OC"
	RankMidshipman   Rank = "MID"
	RankSubLT        Rank = "SLT"
	RankLieutenant   Rank = "LT"
	RankLtCommander  Rank = "LCDR"
	RankCommander    Rank = "CDR"
	RankCaptain      Rank = "CAPT"
)

// Ranks lists every valid rank value.
var Ranks = []Rank{
	RankOfficerCadet,
	RankMidshipman,
	RankSubLT,
	RankLieutenant,
	RankLtCommander,
	RankCommander,
	RankCaptain,
}

// ValidRank reports whether r belongs to the closed rank set.
func ValidRank(r Rank) bool {
	for _, rank := range Ranks {
		if rank == r {
			return true
		}
	}
	return false
}

// User is the identity record stored in the users collection. The document
// key doubles as UserID.
type User struct {
	UserID      string     `bson:"_id" json:"user_id"`
	Rank        Rank       `bson:"rank" json:"rank"`
	FirstName   string     `bson:"first_name" json:"first_name"`
	LastName    string     `bson:"last_name" json:"last_name"`
	DeviceID    string     `bson:"device_id" json:"device_id"`
	CreatedDate time.Time  `bson:"created_date" json:"created_date"`
	LastLogin   *time.Time `bson:"last_login,omitempty" json:"last_login,omitempty"`
	IsAdmin     bool       `bson:"is_admin,omitempty" json:"is_admin,omitempty"`
}

// DisplayName renders the denormalized leaderboard name.
func (u *User) DisplayName() string {
	return string(u.Rank) + " " + u.FirstName + " " + u.LastName
}

// UserRegistrationData carries the fields a new user supplies.
type UserRegistrationData struct {
	Rank      Rank   `json:"rank"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	DeviceID  string `json:"device_id,omitempty"`
}

// UserUpdate carries a partial update; nil fields are left untouched.
type UserUpdate struct {
	Rank      *Rank   `json:"rank,omitempty"`
	FirstName *string `json:"first_name,omitempty"`
	LastName  *string `json:"last_name,omitempty"`
}

// ValidationResult aggregates every violated rule, not just the first.
type ValidationResult struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors,omitempty"`
}
