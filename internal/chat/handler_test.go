package chat

import (
	"net/http"
	"testing"
	"time"

	"doflow-backend/internal/database"
	"doflow-backend/internal/models"
	"doflow-backend/internal/testutil"

	"github.com/stretchr/testify/require"
)

func TestChatHandlers(t *testing.T) {
	db := database.OpenTest(t)
	actor := testutil.SeedCompany(t, db, "Alfa Srl")

	app := testutil.NewApp(actor)
	app.Post("/chat/message", SendMessageHandler(db, NewResponder()))
	app.Get("/chat/history/:session_id", HistoryHandler(db))
	app.Get("/chat/sessions", SessionsHandler(db))

	var first SendMessageResponse
	status := testutil.Do(t, app, http.MethodPost, "/chat/message", SendMessageRequest{Message: "devo registrare una spesa"}, &first)
	require.Equal(t, http.StatusOK, status)
	require.NotEmpty(t, first.SessionID)
	require.Equal(t, string(CategoryExpense), first.AIResponse.Category)
	require.Equal(t, models.SenderAI, first.AIResponse.Sender)

	var second SendMessageResponse
	status = testutil.Do(t, app, http.MethodPost, "/chat/message", SendMessageRequest{Message: "boh", SessionID: first.SessionID}, &second)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, first.SessionID, second.SessionID)
	require.Equal(t, string(CategoryClarification), second.AIResponse.Category)

	status = testutil.Do(t, app, http.MethodPost, "/chat/message", SendMessageRequest{Message: "   "}, nil)
	require.Equal(t, http.StatusBadRequest, status)

	var history struct {
		SessionID string            `json:"session_id"`
		Messages  []MessageResponse `json:"messages"`
		Total     int               `json:"total"`
	}
	require.Equal(t, http.StatusOK, testutil.Do(t, app, http.MethodGet, "/chat/history/"+first.SessionID, nil, &history))
	require.Equal(t, 4, history.Total)
	require.Equal(t, models.SenderUser, history.Messages[0].Sender)
	require.Equal(t, "category", history.Messages[1].Context["step"])

	var sessions []SessionSummary
	require.Equal(t, http.StatusOK, testutil.Do(t, app, http.MethodGet, "/chat/sessions", nil, &sessions))
	require.Len(t, sessions, 1)
	require.Equal(t, 4, sessions[0].MessageCount)
}

func TestSessions(t *testing.T) {
	base := time.Date(2025, time.June, 1, 9, 0, 0, 0, time.UTC)
	long := "Questo è un messaggio molto lungo che supera abbondantemente i cinquanta caratteri"
	rows := []models.ChatMessage{
		{SessionID: "a", Message: "ciao", CreatedAt: base},
		{SessionID: "b", Message: "report", CreatedAt: base.Add(time.Minute)},
		{SessionID: "a", Message: long, CreatedAt: base.Add(2 * time.Minute)},
	}

	got := Sessions(rows)
	require.Len(t, got, 2)
	require.Equal(t, "a", got[0].SessionID)
	require.Equal(t, 2, got[0].MessageCount)
	require.Equal(t, []rune(long)[:50], []rune(got[0].LastMessage)[:50])
	require.Contains(t, got[0].LastMessage, "...")
	require.Equal(t, "b", got[1].SessionID)
}
