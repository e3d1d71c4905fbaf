package auth

import "github.com/golang-jwt/jwt/v5"

// ContentType marks a Twilio access token; Twilio rejects tokens without it.
const ContentType = "twilio-fpa;v=1"

// Claims mirror Twilio's access token payload. Only the voice grant is used.
type Claims struct {
	jwt.RegisteredClaims

	Grants Grants `json:"grants"`
}

type Grants struct {
	Identity string      `json:"identity"`
	Voice    *VoiceGrant `json:"voice,omitempty"`
}

type VoiceGrant struct {
	Incoming *IncomingGrant `json:"incoming,omitempty"`
	Outgoing *OutgoingGrant `json:"outgoing,omitempty"`
}

type IncomingGrant struct {
	Allow bool `json:"allow"`
}

type OutgoingGrant struct {
	ApplicationSID string `json:"application_sid"`
}
