// Package restapi talks to a remote quiz backend that owns quizzes and submissions.
// Every call is issued on behalf of an explicit domain.Identity; its access token is
// sent as a bearer token.
package restapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"quizhub-service/internal/domain"
	"quizhub-service/internal/logger"
)

// Client implements session.QuizSource and app.SubmissionRepository over HTTP.
type Client struct {
	baseURL *url.URL
	http    *http.Client
	logger  *zap.Logger
}

func New(baseURL string, timeout time.Duration, l *zap.Logger) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/") + "/")
	if err != nil {
		return nil, fmt.Errorf("%w: backend url: %v", domain.ErrConfiguration, err)
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: u,
		http:    &http.Client{Timeout: timeout},
		logger:  logger.OrNop(l),
	}, nil
}

// statusError is a non-2xx response.
type statusError struct {
	Method string
	Path   string
	Status int
	Body   string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("%s %s: unexpected status %d: %s", e.Method, e.Path, e.Status, e.Body)
}

// do sends a JSON request and decodes a JSON response into out. A 404 is reported
// as notFound when it is non-nil.
func (c *Client) do(ctx context.Context, who domain.Identity, method, path string, body, out any, notFound error) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s: %w", path, err)
		}
		reader = bytes.NewReader(raw)
	}

	ref, err := url.Parse(strings.TrimLeft(path, "/"))
	if err != nil {
		return fmt.Errorf("build url %s: %w", path, err)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL.ResolveReference(ref).String(), reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if who.AccessToken != "" {
		req.Header.Set("Authorization", "Bearer "+who.AccessToken)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("backend request failed", zap.String("method", method), zap.String("path", path), zap.Error(err))
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound && notFound != nil {
		return notFound
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.logger.Warn("backend returned error", zap.String("path", path), zap.Int("status", resp.StatusCode))
		return &statusError{Method: method, Path: path, Status: resp.StatusCode, Body: strings.TrimSpace(string(snippet))}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && err != io.EOF {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func (c *Client) LoadQuiz(ctx context.Context, who domain.Identity, quizID string) (domain.Quiz, error) {
	var raw json.RawMessage
	if err := c.do(ctx, who, http.MethodGet, "quiz/"+url.PathEscape(quizID), nil, &raw, domain.ErrQuizNotFound); err != nil {
		return domain.Quiz{}, err
	}
	var wq wireQuiz
	found, err := decodeOne(raw, &wq)
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("decode quiz %s: %w", quizID, err)
	}
	if !found {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	return wq.toDomain(), nil
}

func (c *Client) LoadQuestions(ctx context.Context, who domain.Identity, quizID string) ([]domain.Question, error) {
	var wqs []wireQuestion
	if err := c.do(ctx, who, http.MethodGet, "quiz/"+url.PathEscape(quizID)+"/question", nil, &wqs, domain.ErrQuizNotFound); err != nil {
		return nil, err
	}
	questions := make([]domain.Question, 0, len(wqs))
	for _, wq := range wqs {
		questions = append(questions, wq.toDomain())
	}
	return questions, nil
}

// SubmitAttempt posts the attempt in the backend's submit shape. The backend does
// its own grading; a score it returns is passed through on the receipt.
func (c *Client) SubmitAttempt(ctx context.Context, who domain.Identity, attempt domain.Attempt) (domain.Receipt, error) {
	payload := wireSubmitRequest{
		UserID:    attempt.UserID,
		TimeTaken: attempt.TimeTakenSeconds,
		Answers:   make([]wireAnswer, 0, len(attempt.Answers)),
	}
	for _, a := range attempt.Answers {
		payload.Answers = append(payload.Answers, wireAnswer{QuestionID: a.QuestionID, SelectedOptionIDs: a.SelectedOptionIDs})
	}

	var resp wireSubmitResponse
	path := "quiz/" + url.PathEscape(attempt.QuizID) + "/submit"
	if err := c.do(ctx, who, http.MethodPost, path, payload, &resp, domain.ErrQuizNotFound); err != nil {
		return domain.Receipt{}, err
	}
	return resp.toReceipt(time.Now().UTC()), nil
}

func (c *Client) GetSubmission(ctx context.Context, who domain.Identity, submissionID string) (domain.Submission, error) {
	var raw json.RawMessage
	if err := c.do(ctx, who, http.MethodGet, "quiz/quizResult/"+url.PathEscape(submissionID), nil, &raw, domain.ErrSubmissionNotFound); err != nil {
		return domain.Submission{}, err
	}
	var ws wireSubmission
	found, err := decodeOne(raw, &ws)
	if err != nil {
		return domain.Submission{}, fmt.Errorf("decode submission %s: %w", submissionID, err)
	}
	if !found {
		return domain.Submission{}, domain.ErrSubmissionNotFound
	}
	sub := ws.toDomain()
	if sub.ID == "" {
		sub.ID = submissionID
	}
	return sub, nil
}

// History returns the history of the caller; the backend resolves the user from
// the bearer token, so userID is only used for logging.
func (c *Client) History(ctx context.Context, who domain.Identity, userID string) ([]domain.HistoryEntry, error) {
	var whs []wireHistory
	if err := c.do(ctx, who, http.MethodGet, "user-activity/history", nil, &whs, nil); err != nil {
		c.logger.Debug("history fetch failed", zap.String("user_id", userID))
		return nil, err
	}
	entries := make([]domain.HistoryEntry, 0, len(whs))
	for _, wh := range whs {
		entries = append(entries, wh.toDomain())
	}
	return entries, nil
}

func (c *Client) BestResult(ctx context.Context, who domain.Identity, _ string, quizID string) (domain.HistoryEntry, error) {
	var raw json.RawMessage
	if err := c.do(ctx, who, http.MethodGet, "quiz/"+url.PathEscape(quizID)+"/bestResult", nil, &raw, domain.ErrSubmissionNotFound); err != nil {
		return domain.HistoryEntry{}, err
	}
	var wh wireHistory
	found, err := decodeOne(raw, &wh)
	if err != nil {
		return domain.HistoryEntry{}, fmt.Errorf("decode best result: %w", err)
	}
	if !found {
		return domain.HistoryEntry{}, domain.ErrSubmissionNotFound
	}
	return wh.toDomain(), nil
}

func (c *Client) Leaderboard(ctx context.Context, limit int) (domain.Leaderboard, error) {
	var wls []domain.LeaderboardEntry
	var raw []wireLeaderboardEntry
	if err := c.do(ctx, domain.Identity{}, http.MethodGet, "user-activity/leaderboard", nil, &raw, nil); err != nil {
		return domain.Leaderboard{}, err
	}
	for i, e := range raw {
		entry := e.toDomain()
		if entry.Rank == 0 {
			entry.Rank = i + 1
		}
		wls = append(wls, entry)
	}
	if limit > 0 && len(wls) > limit {
		wls = wls[:limit]
	}
	return domain.Leaderboard{Entries: wls, UpdatedAt: time.Now().UTC()}, nil
}

// decodeOne accepts either a JSON object or an array holding it; the backend
// wraps some single-resource responses in arrays.
func decodeOne(raw json.RawMessage, dst any) (bool, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return false, nil
	}
	if trimmed[0] != '[' {
		return true, json.Unmarshal(trimmed, dst)
	}
	var items []json.RawMessage
	if err := json.Unmarshal(trimmed, &items); err != nil {
		return false, err
	}
	if len(items) == 0 {
		return false, nil
	}
	return true, json.Unmarshal(items[0], dst)
}
