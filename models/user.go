package models

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

const DefaultAvatarURL = "https://picsum.photos/200"

type FullName struct {
	FirstName string `bson:"firstName" json:"firstName"`
	LastName  string `bson:"lastName" json:"lastName"`
}

type Avatar struct {
	URL string `bson:"url" json:"url"`
}

// SessionToken is one entry of the user's refresh-token ledger. Only the
// keyed hash of a refresh token is stored, never the raw token.
type SessionToken struct {
	Token string `bson:"token" json:"-"`
}

type User struct {
	ID                       bson.ObjectID  `bson:"_id,omitempty" json:"_id"`
	Avatar                   Avatar         `bson:"avatar" json:"avatar"`
	Username                 string         `bson:"username" json:"username"`
	Email                    string         `bson:"email" json:"email"`
	FullName                 FullName       `bson:"fullName" json:"fullName"`
	Password                 string         `bson:"password" json:"-"` // never expose
	Tokens                   []SessionToken `bson:"tokens,omitempty" json:"-"`
	ResetPasswordToken       string         `bson:"resetpasswordtoken,omitempty" json:"-"`
	ResetPasswordTokenExpiry *time.Time     `bson:"resetpasswordtokenexpiry,omitempty" json:"-"`
	CreatedAt                time.Time      `bson:"createdAt" json:"createdAt"`
	UpdatedAt                time.Time      `bson:"updatedAt" json:"updatedAt"`
}

// PublicUser is the password-free projection embedded in chat and message
// payloads and in realtime events.
type PublicUser struct {
	ID       bson.ObjectID `bson:"_id" json:"_id"`
	Avatar   Avatar        `bson:"avatar" json:"avatar"`
	Username string        `bson:"username" json:"username"`
	Email    string        `bson:"email" json:"email"`
	FullName FullName      `bson:"fullName" json:"fullName"`
}

func (u *User) Public() PublicUser {
	return PublicUser{
		ID:       u.ID,
		Avatar:   u.Avatar,
		Username: u.Username,
		Email:    u.Email,
		FullName: u.FullName,
	}
}
