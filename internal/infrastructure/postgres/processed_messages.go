package postgres

import (
	"context"
	"strings"
)

// MarkProcessed inserts (message_id, handler_name) once, inside the caller's
// transaction. Returns:
//
//	ok=true  -> first time processed
//	ok=false -> duplicate delivery (already processed)
//
// If the transaction rolls back the marker goes with it, so a failed
// delivery can be retried.
func (t *txStore) MarkProcessed(ctx context.Context, messageID, handlerName string) (ok bool, err error) {
	messageID = strings.TrimSpace(messageID)
	handlerName = strings.TrimSpace(handlerName)

	if messageID == "" {
		// no id, no dedupe; the caller still applies the message
		return true, nil
	}
	if handlerName == "" {
		handlerName = "unknown"
	}

	tag, err := t.tx.Exec(ctx, `
		INSERT INTO processed_messages (message_id, handler_name)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING
	`, messageID, handlerName)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}
