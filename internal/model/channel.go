// internal/model/channel.go
package model

import "strings"

type ChannelType string

const (
	ChannelEmail    ChannelType = "email"
	ChannelSMS      ChannelType = "sms"
	ChannelPush     ChannelType = "push"
	ChannelWhatsApp ChannelType = "whatsapp"
	ChannelAPI      ChannelType = "api"
)

// legacy numeric identifiers used by source steps; "6" is the old generic API channel
var channelIDs = map[string]ChannelType{
	"1": ChannelEmail,
	"2": ChannelSMS,
	"3": ChannelPush,
	"4": ChannelWhatsApp,
	"5": ChannelAPI,
	"6": ChannelAPI,
}

// ResolveChannel maps a step's channel identifier, numeric or named, to a ChannelType.
func ResolveChannel(id string) (ChannelType, bool) {
	id = strings.TrimSpace(id)
	if ct, ok := channelIDs[id]; ok {
		return ct, true
	}
	switch ct := ChannelType(strings.ToLower(id)); ct {
	case ChannelEmail, ChannelSMS, ChannelPush, ChannelWhatsApp, ChannelAPI:
		return ct, true
	}
	return "", false
}

// ChannelBase is the part every channel payload shares.
type ChannelBase struct {
	Sent   int    `json:"sent"`
	Failed int    `json:"failed"`
	Note   string `json:"note,omitempty"`
}

type EmailData struct {
	Opened  int `json:"opened"`
	Clicked int `json:"clicked"`
	Bounced int `json:"bounced"`
}

type SMSData struct {
	Delivered int `json:"delivered"`
}

type PushData struct {
	Delivered int `json:"delivered"`
	Opened    int `json:"opened"`
}

type WhatsAppData struct {
	Delivered int `json:"delivered"`
	Read      int `json:"read"`
}

type APIData struct {
	Endpoint string `json:"endpoint,omitempty"`
	Calls    int    `json:"calls"`
}

// ChannelPayload is a tagged variant: Type selects which of the pointer fields is set.
type ChannelPayload struct {
	Type     ChannelType   `json:"type"`
	Base     ChannelBase   `json:"base"`
	Email    *EmailData    `json:"email,omitempty"`
	SMS      *SMSData      `json:"sms,omitempty"`
	Push     *PushData     `json:"push,omitempty"`
	WhatsApp *WhatsAppData `json:"whatsapp,omitempty"`
	API      *APIData      `json:"api,omitempty"`
}
