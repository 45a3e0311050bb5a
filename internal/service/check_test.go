package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"

	"github.com/kitbuilder587/copyscape-bot/internal/domain"
	"github.com/kitbuilder587/copyscape-bot/internal/metrics"
	"github.com/kitbuilder587/copyscape-bot/internal/plagiarism"
	"github.com/kitbuilder587/copyscape-bot/internal/plagiarism/mock"
	"github.com/kitbuilder587/copyscape-bot/internal/repository"
)

const addResponse = "<response><handle>h-1</handle><title>Declaration</title></response>"

func newTestService(checker plagiarism.Checker, docs repository.DocumentRepository) CheckService {
	return NewCheckService(checker, docs, nil, zap.NewNop())
}

func TestCheckService_CheckDispatch(t *testing.T) {
	tests := []struct {
		name   string
		req    domain.CheckRequest
		wantOp plagiarism.Operation
		isText bool
	}{
		{"url internet", domain.CheckRequest{URL: "http://a.b", Scope: domain.ScopeInternet}, plagiarism.OpInternetSearch, false},
		{"url private", domain.CheckRequest{URL: "http://a.b", Scope: domain.ScopePrivate}, plagiarism.OpPrivateSearch, false},
		{"url combined", domain.CheckRequest{URL: "http://a.b", Scope: domain.ScopeCombined, Full: 2}, plagiarism.OpCombinedSearch, false},
		{"text internet", domain.CheckRequest{Text: "hello", Scope: domain.ScopeInternet}, plagiarism.OpInternetSearch, true},
		{"text private", domain.CheckRequest{Text: "hello", Scope: domain.ScopePrivate}, plagiarism.OpPrivateSearch, true},
		{"text combined", domain.CheckRequest{Text: "hello", Encoding: "ISO-8859-1", Scope: domain.ScopeCombined}, plagiarism.OpCombinedSearch, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checker := mock.New()
			svc := newTestService(checker, nil)

			resp, err := svc.Check(context.Background(), tt.req)
			if err != nil {
				t.Fatalf("Check() error = %v", err)
			}
			if resp == nil {
				t.Fatal("Check() returned nil response")
			}

			call := checker.LastCall
			if call.Operation != tt.wantOp {
				t.Errorf("operation = %s, want %s", call.Operation, tt.wantOp)
			}
			if tt.isText {
				if call.Text != tt.req.Text || call.Encoding != tt.req.Encoding || call.URL != "" {
					t.Errorf("call = %+v, want text search", call)
				}
			} else if call.URL != tt.req.URL || call.Text != "" {
				t.Errorf("call = %+v, want url search", call)
			}
			if call.Full != tt.req.Full {
				t.Errorf("full = %d, want %d", call.Full, tt.req.Full)
			}
		})
	}
}

func TestCheckService_CheckValidation(t *testing.T) {
	checker := mock.New()
	svc := newTestService(checker, nil)

	tests := []struct {
		name    string
		req     domain.CheckRequest
		wantErr error
	}{
		{"bad url", domain.CheckRequest{URL: "ftp://x", Scope: domain.ScopeInternet}, domain.ErrInvalidURL},
		{"empty text", domain.CheckRequest{Text: "  ", Scope: domain.ScopeInternet}, domain.ErrEmptyText},
		{"negative full", domain.CheckRequest{URL: "http://a.b", Scope: domain.ScopeInternet, Full: -1}, domain.ErrInvalidFull},
		{"bad scope", domain.CheckRequest{URL: "http://a.b", Scope: "web"}, domain.ErrInvalidScope},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.Check(context.Background(), tt.req); !errors.Is(err, tt.wantErr) {
				t.Errorf("Check() error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	if checker.CallCount != 0 {
		t.Errorf("invalid requests reached the API %d times", checker.CallCount)
	}
}

func TestCheckService_NoResult(t *testing.T) {
	checker := mock.New().WithError(plagiarism.ErrNoResult)
	svc := newTestService(checker, nil)

	_, err := svc.Balance(context.Background())
	if !errors.Is(err, domain.ErrNoResult) {
		t.Errorf("Balance() error = %v, want domain.ErrNoResult", err)
	}
	if !errors.Is(err, plagiarism.ErrNoResult) {
		t.Errorf("Balance() error = %v, want wrapped plagiarism.ErrNoResult", err)
	}
}

func TestCheckService_APIError(t *testing.T) {
	checker := mock.New().WithXML(plagiarism.OpBalance, "<response><error>bad key</error></response>")
	svc := newTestService(checker, nil)

	resp, err := svc.Balance(context.Background())
	if !errors.Is(err, domain.ErrAPIError) {
		t.Fatalf("Balance() error = %v, want ErrAPIError", err)
	}
	if resp == nil || resp.Value("error") != "bad key" {
		t.Errorf("Balance() should still return the response, got %+v", resp)
	}
}

func TestCheckService_AddText(t *testing.T) {
	checker := mock.New().WithXML(plagiarism.OpPrivateAdd, addResponse)
	repo := repository.NewMockDocumentRepository()
	reg := prometheus.NewRegistry()
	m := metrics.NewWithRegisterer(reg)
	svc := NewCheckService(checker, repo, m, zap.NewNop())

	doc, resp, err := svc.AddText(context.Background(), 7, "", "We hold these truths", "", "EX-1")
	if err != nil {
		t.Fatalf("AddText() error = %v", err)
	}
	if resp == nil {
		t.Fatal("AddText() returned nil response")
	}
	if doc.Handle != "h-1" || doc.Title != "Declaration" || doc.Kind != domain.KindText || doc.ExternalID != "EX-1" {
		t.Errorf("doc = %+v", doc)
	}
	if checker.LastCall.ID != "EX-1" || checker.LastCall.Text != "We hold these truths" {
		t.Errorf("LastCall = %+v", checker.LastCall)
	}

	docs, _ := repo.ListByUser(context.Background(), 7)
	if len(docs) != 1 || docs[0].Handle != "h-1" {
		t.Errorf("stored docs = %+v", docs)
	}

	if got := testutil.ToFloat64(m.PrivateDocumentsTotal.WithLabelValues("added")); got != 1 {
		t.Errorf("documents added metric = %v, want 1", got)
	}
}

func TestCheckService_AddURL(t *testing.T) {
	checker := mock.New().WithXML(plagiarism.OpPrivateAdd, addResponse)
	repo := repository.NewMockDocumentRepository()
	svc := newTestService(checker, repo)

	doc, _, err := svc.AddURL(context.Background(), 7, "http://www.copyscape.com/example.html", "")
	if err != nil {
		t.Fatalf("AddURL() error = %v", err)
	}
	if doc.Kind != domain.KindURL || doc.URL != "http://www.copyscape.com/example.html" {
		t.Errorf("doc = %+v", doc)
	}
	if doc.ExternalID == "" || checker.LastCall.ID != doc.ExternalID {
		t.Errorf("generated id = %q, sent %q", doc.ExternalID, checker.LastCall.ID)
	}
	if _, err := uuid.Parse(doc.ExternalID); err != nil {
		t.Errorf("external id %q is not a uuid: %v", doc.ExternalID, err)
	}

	if _, _, err := svc.AddURL(context.Background(), 7, "not a url", ""); !errors.Is(err, domain.ErrInvalidURL) {
		t.Errorf("AddURL() error = %v, want ErrInvalidURL", err)
	}
}

func TestCheckService_AddErrors(t *testing.T) {
	t.Run("registry disabled", func(t *testing.T) {
		svc := newTestService(mock.New(), nil)
		if _, _, err := svc.AddText(context.Background(), 1, "", "text", "", ""); !errors.Is(err, domain.ErrRegistryDisabled) {
			t.Errorf("AddText() error = %v, want ErrRegistryDisabled", err)
		}
	})

	t.Run("missing handle", func(t *testing.T) {
		svc := newTestService(mock.New(), repository.NewMockDocumentRepository())
		if _, _, err := svc.AddText(context.Background(), 1, "", "text", "", ""); !errors.Is(err, domain.ErrMissingHandle) {
			t.Errorf("AddText() error = %v, want ErrMissingHandle", err)
		}
	})

	t.Run("api error is not stored", func(t *testing.T) {
		checker := mock.New().WithXML(plagiarism.OpPrivateAdd, "<response><error>No text</error></response>")
		repo := repository.NewMockDocumentRepository()
		svc := newTestService(checker, repo)

		_, resp, err := svc.AddText(context.Background(), 1, "", "text", "", "")
		if !errors.Is(err, domain.ErrAPIError) || resp == nil {
			t.Errorf("AddText() = %v, %v; want response and ErrAPIError", resp, err)
		}
		if n, _ := repo.CountByUser(context.Background(), 1); n != 0 {
			t.Errorf("stored %d docs, want 0", n)
		}
	})

	t.Run("limit reached", func(t *testing.T) {
		checker := mock.New()
		repo := repository.NewMockDocumentRepository()
		for i := 0; i < domain.MaxDocumentsPerUser; i++ {
			repo.Create(context.Background(), &domain.PrivateDocument{
				UserID: 1,
				Handle: string(rune('a'+i%26)) + string(rune('0'+i/26)),
				Kind:   domain.KindText,
			})
		}
		svc := newTestService(checker, repo)

		if _, _, err := svc.AddText(context.Background(), 1, "", "text", "", ""); !errors.Is(err, domain.ErrDocumentLimitReached) {
			t.Errorf("AddText() error = %v, want ErrDocumentLimitReached", err)
		}
		if checker.CallCount != 0 {
			t.Error("limit check must happen before the API call")
		}
	})

	t.Run("storage failure rolls back", func(t *testing.T) {
		checker := mock.New().WithXML(plagiarism.OpPrivateAdd, addResponse)
		// CountByUser проходит, Create падает
		repo := &failingCreateRepo{MockDocumentRepository: repository.NewMockDocumentRepository(), err: domain.ErrInternal}
		svc := newTestService(checker, repo)

		if _, _, err := svc.AddText(context.Background(), 1, "", "text", "", ""); !errors.Is(err, domain.ErrInternal) {
			t.Fatalf("AddText() error = %v, want ErrInternal", err)
		}
		if checker.LastCall.Operation != plagiarism.OpPrivateDelete || checker.LastCall.Handle != "h-1" {
			t.Errorf("LastCall = %+v, want rollback delete of h-1", checker.LastCall)
		}
	})
}

type failingCreateRepo struct {
	*repository.MockDocumentRepository
	err error
}

func (r *failingCreateRepo) Create(ctx context.Context, doc *domain.PrivateDocument) error {
	return r.err
}

func TestCheckService_DeleteDocument(t *testing.T) {
	ctx := context.Background()
	checker := mock.New().WithXML(plagiarism.OpPrivateDelete, "<response><result>ok</result></response>")
	repo := repository.NewMockDocumentRepository()
	repo.Create(ctx, &domain.PrivateDocument{UserID: 5, Handle: "first", Kind: domain.KindText})
	repo.Create(ctx, &domain.PrivateDocument{UserID: 5, Handle: "second", Kind: domain.KindText})
	svc := newTestService(checker, repo)

	doc, _, err := svc.DeleteDocument(ctx, 5, 2)
	if err != nil {
		t.Fatalf("DeleteDocument() error = %v", err)
	}
	if doc.Handle != "second" || checker.LastCall.Handle != "second" {
		t.Errorf("deleted %q via handle %q, want second", doc.Handle, checker.LastCall.Handle)
	}

	docs, _ := svc.ListDocuments(ctx, 5)
	if len(docs) != 1 || docs[0].Handle != "first" {
		t.Errorf("remaining docs = %+v", docs)
	}

	for _, n := range []int{0, 2, -1} {
		if _, _, err := svc.DeleteDocument(ctx, 5, n); !errors.Is(err, domain.ErrDocumentNotFound) {
			t.Errorf("DeleteDocument(%d) error = %v, want ErrDocumentNotFound", n, err)
		}
	}
}

func TestCheckService_DeleteKeepsRecordOnFailure(t *testing.T) {
	ctx := context.Background()
	checker := mock.New().WithError(plagiarism.ErrNoResult)
	repo := repository.NewMockDocumentRepository()
	repo.Create(ctx, &domain.PrivateDocument{UserID: 5, Handle: "h", Kind: domain.KindText})
	svc := newTestService(checker, repo)

	if _, _, err := svc.DeleteDocument(ctx, 5, 1); !errors.Is(err, domain.ErrNoResult) {
		t.Fatalf("DeleteDocument() error = %v, want ErrNoResult", err)
	}
	if n, _ := repo.CountByUser(ctx, 5); n != 1 {
		t.Errorf("record count = %d, want 1", n)
	}
}

func TestCheckService_DeleteAPIError(t *testing.T) {
	tests := []struct {
		name       string
		apiError   string
		wantErr    bool
		wantRecord int
	}{
		{"handle already gone", "Handle not found", false, 0},
		{"invalid handle", "Invalid handle", false, 0},
		{"other api error", "Insufficient funds", true, 1},
		{"unrelated not found", "User not found", true, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			checker := mock.New().WithXML(plagiarism.OpPrivateDelete,
				"<response><error>"+tt.apiError+"</error></response>")
			repo := repository.NewMockDocumentRepository()
			repo.Create(ctx, &domain.PrivateDocument{UserID: 5, Handle: "h", Kind: domain.KindText})
			svc := newTestService(checker, repo)

			doc, resp, err := svc.DeleteDocument(ctx, 5, 1)
			if tt.wantErr != (err != nil) {
				t.Fatalf("DeleteDocument() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr && !errors.Is(err, domain.ErrAPIError) {
				t.Errorf("DeleteDocument() error = %v, want ErrAPIError", err)
			}
			if doc == nil || doc.Handle != "h" || resp == nil {
				t.Errorf("DeleteDocument() = %+v, %+v", doc, resp)
			}
			if n, _ := repo.CountByUser(ctx, 5); n != tt.wantRecord {
				t.Errorf("record count = %d, want %d", n, tt.wantRecord)
			}
		})
	}
}
