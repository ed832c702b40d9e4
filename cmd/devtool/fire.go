package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/osse101/WorldEvents_Go/internal/domain"
	"github.com/osse101/WorldEvents_Go/internal/handler"
	"github.com/osse101/WorldEvents_Go/internal/server"
)

type FireCommand struct{}

func (c *FireCommand) Name() string {
	return "fire"
}

func (c *FireCommand) Description() string {
	return "Fire an event schedule on a running service <event_id> [zone_id] [base-url]"
}

func (c *FireCommand) Run(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("event_id required")
	}
	req, err := parseFireArgs(args)
	if err != nil {
		return err
	}
	apiKey := os.Getenv("API_KEY")
	if apiKey == "" {
		return fmt.Errorf("API_KEY must be set")
	}

	var rest []string
	if len(args) > 2 {
		rest = args[2:]
	}
	base := serviceURL(rest)
	PrintHeader(fmt.Sprintf("Firing event %d in zone %d", req.EventID, req.ZoneID))

	inst, err := fireSchedule(&http.Client{Timeout: httpTimeout}, base, apiKey, req)
	if err != nil {
		return err
	}
	PrintSuccess("Started instance %s (%s, zone %s)", inst.ID, inst.State, inst.Zone)
	return nil
}

func parseFireArgs(args []string) (handler.FireScheduleRequest, error) {
	var req handler.FireScheduleRequest
	eventID, err := strconv.ParseUint(args[0], 10, 32)
	if err != nil || eventID == 0 {
		return req, fmt.Errorf("invalid event_id %q", args[0])
	}
	req.EventID = uint32(eventID)
	if len(args) > 1 {
		zoneID, err := strconv.ParseUint(args[1], 10, 32)
		if err != nil {
			return req, fmt.Errorf("invalid zone_id %q", args[1])
		}
		req.ZoneID = uint32(zoneID)
	}
	return req, nil
}

func fireSchedule(client *http.Client, base, apiKey string, fire handler.FireScheduleRequest) (*domain.Instance, error) {
	body, err := json.Marshal(fire)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, base+"/api/v1/admin/schedules/fire", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(server.HeaderAPIKey, apiKey)

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var out struct {
		Data domain.Instance `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &out.Data, nil
}
