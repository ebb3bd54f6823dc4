package looker

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// ID is a Looker object identifier. API 3.x encodes IDs as JSON numbers
// and API 4.0 as numeric strings; ID decodes from either.
type ID int64

// UnmarshalJSON implements json.Unmarshaler.
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = 0
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		data = []byte(s)
	}
	n, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return fmt.Errorf("looker: invalid id %s: %w", data, err)
	}
	*id = ID(n)
	return nil
}

// String returns the decimal form used in URL paths.
func (id ID) String() string {
	return strconv.FormatInt(int64(id), 10)
}

// AccessToken is the response of POST /login.
type AccessToken struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// Group is a Looker group.
type Group struct {
	ID   ID     `json:"id"`
	Name string `json:"name"`
}

// WriteGroup is the request body for creating a group.
type WriteGroup struct {
	Name                    string `json:"name"`
	CanAddToContentMetadata bool   `json:"can_add_to_content_metadata"`
}

// UserAttribute is a Looker user attribute.
type UserAttribute struct {
	ID            ID     `json:"id"`
	Name          string `json:"name"`
	Label         string `json:"label"`
	Type          string `json:"type"`
	DefaultValue  string `json:"default_value"`
	IsSystem      bool   `json:"is_system"`
	IsPermanent   bool   `json:"is_permanent"`
	ValueIsHidden bool   `json:"value_is_hidden"`
	UserCanView   bool   `json:"user_can_view"`
	UserCanEdit   bool   `json:"user_can_edit"`
}

// WriteUserAttribute is the request body for creating a user attribute.
type WriteUserAttribute struct {
	Name          string `json:"name"`
	Label         string `json:"label"`
	Type          string `json:"type"`
	DefaultValue  string `json:"default_value"`
	ValueIsHidden bool   `json:"value_is_hidden"`
	UserCanView   bool   `json:"user_can_view"`
	UserCanEdit   bool   `json:"user_can_edit"`
}

// UserAttributeUpdate is the PATCH body for a user attribute. Nil fields
// are left unchanged on the server.
type UserAttributeUpdate struct {
	Type         *string `json:"type,omitempty"`
	DefaultValue *string `json:"default_value,omitempty"`
}

// GroupValue is one per-group override of a user attribute.
type GroupValue struct {
	GroupID ID     `json:"group_id"`
	Value   string `json:"value"`
}

// UserAttributeGroupValue is a group value as returned by the server.
type UserAttributeGroupValue struct {
	ID              ID     `json:"id"`
	GroupID         ID     `json:"group_id"`
	UserAttributeID ID     `json:"user_attribute_id"`
	ValueIsHidden   bool   `json:"value_is_hidden"`
	Rank            int    `json:"rank"`
	Value           string `json:"value"`
}
