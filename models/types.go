// ABOUTME: Wire types for the amoCRM v4 API
// ABOUTME: Defines Deal, Contact, Task, response envelopes and the DueDate codec
package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Deal is an amoCRM lead. The upstream API calls them "leads"; the UI
// calls them deals. Embedded contact refs come back when the list is
// requested with ?with=contacts.
type Deal struct {
	ID        int64        `json:"id"`
	Name      string       `json:"name"`
	Price     int64        `json:"price"`
	StatusID  int64        `json:"status_id"`
	CreatedAt int64        `json:"created_at"`
	Embedded  DealEmbedded `json:"_embedded"`
}

type DealEmbedded struct {
	Contacts []ContactRef `json:"contacts"`
}

// ContactRef is the id-only contact reference embedded in a deal.
type ContactRef struct {
	ID     int64 `json:"id"`
	IsMain bool  `json:"is_main"`
}

// Contact is a person record with its custom field values (phone lives there).
type Contact struct {
	ID           int64         `json:"id"`
	Name         string        `json:"name"`
	CustomFields []CustomField `json:"custom_fields_values"`
}

type CustomField struct {
	FieldID   int64        `json:"field_id"`
	FieldCode string       `json:"field_code"`
	FieldName string       `json:"field_name"`
	Values    []FieldValue `json:"values"`
}

type FieldValue struct {
	Value    string `json:"value"`
	EnumCode string `json:"enum_code,omitempty"`
}

// Phone returns the contact's phone number from custom fields, or "" when
// the contact carries no PHONE field.
func (c *Contact) Phone() string {
	for _, f := range c.CustomFields {
		if f.FieldCode != "PHONE" && f.FieldName != "Телефон" {
			continue
		}
		if len(f.Values) > 0 {
			return f.Values[0].Value
		}
	}
	return ""
}

// Task is a follow-up action tied to exactly one deal. CompleteTill is nil
// when the upstream record has no due date.
type Task struct {
	ID           int64    `json:"id"`
	EntityID     int64    `json:"entity_id"`
	EntityType   string   `json:"entity_type"`
	Text         string   `json:"text"`
	CompleteTill *DueDate `json:"complete_till"`
}

// DealDetail is the merged result of a detail load: the full deal record
// plus the earliest pending task for it.
type DealDetail struct {
	Deal
	NextTask *Task `json:"next_task,omitempty"`
}

// Envelopes. amoCRM wraps every collection in _embedded; a response that
// lacks the expected field decodes to empty slices, which callers treat as
// "no results" rather than an error.

type LeadsResponse struct {
	Embedded struct {
		Leads []Deal `json:"leads"`
	} `json:"_embedded"`
}

type ContactsResponse struct {
	Embedded struct {
		Contacts []Contact `json:"contacts"`
	} `json:"_embedded"`
}

type TasksResponse struct {
	Embedded struct {
		Tasks []Task `json:"tasks"`
	} `json:"_embedded"`
}

// TokenResponse is the body of POST /oauth2/access_token for both grant types.
type TokenResponse struct {
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// DueDate is a calendar due date that the upstream serializes either as
// epoch seconds or as a parseable date string, depending on the endpoint
// version. Both forms decode to the same instant.
type DueDate struct {
	time.Time
}

// NewDueDate builds a DueDate from a time value. Mostly for tests.
func NewDueDate(t time.Time) *DueDate {
	return &DueDate{Time: t}
}

func (d *DueDate) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" || s == `""` {
		return nil
	}
	if sec, err := strconv.ParseInt(s, 10, 64); err == nil {
		d.Time = time.Unix(sec, 0)
		return nil
	}
	str, err := strconv.Unquote(s)
	if err != nil {
		return fmt.Errorf("due date %s: %w", s, err)
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02", "2006-01-02 15:04:05"} {
		if t, perr := time.Parse(layout, str); perr == nil {
			d.Time = t
			return nil
		}
	}
	return fmt.Errorf("due date %q: unrecognized format", str)
}

func (d DueDate) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.Unix())
}
