// Package model defines data structures used throughout the application.
package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Key is a record identifier as stored in the remote collection: the store
// key, string encoded, normally holding a decimal integer.
type Key string

// KeyFromInt formats an allocated integer identifier as a store key.
func KeyFromInt(id int) Key {
	return Key(strconv.Itoa(id))
}

// Int parses the key as a decimal integer.
func (k Key) Int() (int, bool) {
	n, err := strconv.Atoi(string(k))
	if err != nil {
		return 0, false
	}
	return n, true
}

// String returns the raw key.
func (k Key) String() string {
	return string(k)
}

// UnmarshalJSON accepts both a JSON string and a JSON number. Category
// values carry a numeric id while item values carry a string one.
func (k *Key) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*k = ""
		return nil
	}

	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("decode key: %w", err)
		}
		*k = Key(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("decode key: %w", err)
	}
	*k = Key(n.String())
	return nil
}

// Category is a catalog category.
type Category struct {
	ID     Key    `json:"id"`
	Title  string `json:"title"`
	PicURL string `json:"picUrl"`
}

// Key returns the category identifier.
func (c Category) Key() Key { return c.ID }

// WithKey returns a copy of the category carrying the given identifier.
func (c Category) WithKey(k Key) Category {
	c.ID = k
	return c
}

// MarshalJSON writes a decimal id as a JSON number, the way category values
// are stored. Any other id stays a string.
func (c Category) MarshalJSON() ([]byte, error) {
	type plain Category
	n, ok := c.ID.Int()
	if !ok {
		return json.Marshal(plain(c))
	}
	return json.Marshal(struct {
		ID int `json:"id"`
		plain
	}{ID: n, plain: plain(c)})
}

// Item is a catalog item. CategoryID references a Category by its integer key.
type Item struct {
	ID              Key      `json:"id"`
	Title           string   `json:"title"`
	Quantity        int      `json:"quantity"`
	Model           []string `json:"model"`
	PicURL          []string `json:"picUrl"`
	Description     string   `json:"description"`
	Price           float64  `json:"price"`
	Rating          float64  `json:"rating"`
	CategoryID      int      `json:"categoryId"`
	ShowRecommended bool     `json:"showRecommended"`
}

// Key returns the item identifier.
func (i Item) Key() Key { return i.ID }

// WithKey returns a copy of the item carrying the given identifier.
func (i Item) WithKey(k Key) Item {
	i.ID = k
	return i
}
