package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"verba/internal/command"
)

const ourGroceriesURL = "https://www.ourgroceries.com"

// OurGroceries talks to the OurGroceries JSON command endpoint. It signs in
// lazily and resolves the configured list name to an ID once.
type OurGroceries struct {
	client   *http.Client
	baseURL  string
	username string
	password string
	listName string

	mu       sync.Mutex
	signedIn bool
	teamID   string
	listID   string
}

func NewOurGroceries(username, password, listName string) *OurGroceries {
	jar, _ := cookiejar.New(nil)
	return &OurGroceries{
		client:   &http.Client{Jar: jar},
		baseURL:  ourGroceriesURL,
		username: username,
		password: password,
		listName: listName,
	}
}

// signIn posts the login form and scrapes the team ID from the lists page.
// Callers hold s.mu.
func (s *OurGroceries) signIn(ctx context.Context) error {
	if s.signedIn {
		return nil
	}
	form := url.Values{}
	form.Set("emailAddress", s.username)
	form.Set("password", s.password)
	form.Set("action", "sign-me-in")
	form.Set("staySignedIn", "on")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		s.baseURL+"/sign-in", strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build sign-in request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("sign in: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read sign-in page: %w", err)
	}

	// The lists page embeds g_teamId = "...";
	const marker = `g_teamId = "`
	idx := strings.Index(string(body), marker)
	if idx < 0 {
		return fmt.Errorf("sign in failed for %s", s.username)
	}
	rest := string(body)[idx+len(marker):]
	end := strings.IndexByte(rest, '"')
	if end < 0 {
		return fmt.Errorf("sign in failed for %s", s.username)
	}
	s.teamID = rest[:end]
	s.signedIn = true
	return nil
}

// post sends one JSON command to the team's list endpoint.
func (s *OurGroceries) post(ctx context.Context, body string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		s.baseURL+"/your-lists/", bytes.NewReader([]byte(body)))
	if err != nil {
		return nil, fmt.Errorf("build list request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("list request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("list API status %d", resp.StatusCode)
	}
	out, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read list response: %w", err)
	}
	return out, nil
}

// ensureList signs in and resolves the configured list name. Callers hold
// s.mu.
func (s *OurGroceries) ensureList(ctx context.Context) error {
	if err := s.signIn(ctx); err != nil {
		return err
	}
	if s.listID != "" {
		return nil
	}

	body, _ := sjson.Set(`{}`, "command", "getOverview")
	body, _ = sjson.Set(body, "teamId", s.teamID)
	resp, err := s.post(ctx, body)
	if err != nil {
		return err
	}

	var found string
	gjson.GetBytes(resp, "shoppingLists").ForEach(func(_, lst gjson.Result) bool {
		if lst.Get("name").String() == s.listName {
			found = lst.Get("id").String()
			return false
		}
		return true
	})
	if found == "" {
		return fmt.Errorf("no list named %q", s.listName)
	}
	s.listID = found
	return nil
}

func (s *OurGroceries) Items(ctx context.Context) ([]command.GroceryItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureList(ctx); err != nil {
		return nil, err
	}

	body, _ := sjson.Set(`{}`, "command", "getList")
	body, _ = sjson.Set(body, "teamId", s.teamID)
	body, _ = sjson.Set(body, "listId", s.listID)
	resp, err := s.post(ctx, body)
	if err != nil {
		return nil, err
	}

	var items []command.GroceryItem
	gjson.GetBytes(resp, "list.items").ForEach(func(_, it gjson.Result) bool {
		items = append(items, command.GroceryItem{
			ID:         it.Get("id").String(),
			Value:      it.Get("value").String(),
			CrossedOff: it.Get("crossedOff").Bool(),
		})
		return true
	})
	return items, nil
}

func (s *OurGroceries) Add(ctx context.Context, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureList(ctx); err != nil {
		return err
	}

	body, _ := sjson.Set(`{}`, "command", "insertItem")
	body, _ = sjson.Set(body, "teamId", s.teamID)
	body, _ = sjson.Set(body, "listId", s.listID)
	body, _ = sjson.Set(body, "value", value)
	_, err := s.post(ctx, body)
	return err
}

func (s *OurGroceries) Remove(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureList(ctx); err != nil {
		return err
	}

	body, _ := sjson.Set(`{}`, "command", "deleteItem")
	body, _ = sjson.Set(body, "teamId", s.teamID)
	body, _ = sjson.Set(body, "listId", s.listID)
	body, _ = sjson.Set(body, "itemId", id)
	_, err := s.post(ctx, body)
	return err
}
