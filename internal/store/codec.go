package store

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/campushq/steward/internal/command"
)

// recordRow is the flattened SQL representation of a command record shared
// by the sqlite and postgres recorders. Structured fields travel as JSON.
type recordRow struct {
	id             string
	conversationID string
	rawInput       string
	agent          string
	intent         string
	entities       []byte
	status         string
	clarification  []byte
	token          string
	pendingAction  string
	result         []byte
	errorMessage   string
	createdAt      time.Time
	completedAt    time.Time
}

func encodeRow(rec command.Record) (recordRow, error) {
	entities, err := command.EncodeParams(rec.Entities)
	if err != nil {
		return recordRow{}, err
	}
	var clar []byte
	if rec.Clarification != nil {
		clar, err = json.Marshal(rec.Clarification)
		if err != nil {
			return recordRow{}, fmt.Errorf("store: encode clarification: %w", err)
		}
	}
	var result []byte
	if rec.Result != nil {
		result, err = json.Marshal(rec.Result)
		if err != nil {
			return recordRow{}, fmt.Errorf("store: encode result: %w", err)
		}
	}
	return recordRow{
		id:             rec.ID,
		conversationID: rec.ConversationID,
		rawInput:       rec.RawInput,
		agent:          string(rec.Agent),
		intent:         rec.Intent,
		entities:       entities,
		status:         string(rec.Status),
		clarification:  clar,
		token:          rec.ConfirmationToken,
		pendingAction:  rec.PendingAction,
		result:         result,
		errorMessage:   rec.ErrorMessage,
		createdAt:      rec.CreatedAt,
		completedAt:    rec.CompletedAt,
	}, nil
}

func decodeRow(row recordRow) (command.Record, error) {
	entities, err := command.DecodeParams(row.entities)
	if err != nil {
		return command.Record{}, err
	}
	rec := command.Record{
		ID:                row.id,
		ConversationID:    row.conversationID,
		RawInput:          row.rawInput,
		Agent:             command.Agent(row.agent),
		Intent:            row.intent,
		Entities:          entities,
		Status:            command.Status(row.status),
		ConfirmationToken: row.token,
		PendingAction:     row.pendingAction,
		ErrorMessage:      row.errorMessage,
		CreatedAt:         row.createdAt,
		CompletedAt:       row.completedAt,
	}
	if len(row.clarification) > 0 {
		var c command.Clarification
		if err := json.Unmarshal(row.clarification, &c); err != nil {
			return command.Record{}, fmt.Errorf("store: decode clarification: %w", err)
		}
		rec.Clarification = &c
	}
	if len(row.result) > 0 {
		var r command.Envelope
		if err := json.Unmarshal(row.result, &r); err != nil {
			return command.Record{}, fmt.Errorf("store: decode result: %w", err)
		}
		rec.Result = &r
	}
	return rec, nil
}
