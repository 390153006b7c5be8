package customreq

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kaos-euy/backend-kaos/internal/common"
	"github.com/kaos-euy/backend-kaos/internal/events"
)

type fakeRepo struct {
	created      []Request
	failWithDupe int
}

func (f *fakeRepo) Create(_ context.Context, req Request) (Request, error) {
	if f.failWithDupe > 0 {
		f.failWithDupe--
		return Request{}, ErrDuplicateNumber
	}
	req.ID = "crq-test"
	req.CreatedAt = time.Now().UTC()
	req.UpdatedAt = req.CreatedAt
	f.created = append(f.created, req)
	return req, nil
}

func (f *fakeRepo) GetByID(_ context.Context, id string) (Request, error) {
	for _, req := range f.created {
		if req.ID == id {
			return req, nil
		}
	}
	return Request{}, ErrNotFound
}

func (f *fakeRepo) List(_ context.Context, _ []Status, _, _ int) ([]Request, int64, error) {
	return f.created, int64(len(f.created)), nil
}

func (f *fakeRepo) UpdateStatus(_ context.Context, id string, status Status) (Request, error) {
	for i := range f.created {
		if f.created[i].ID == id {
			f.created[i].Status = status
			return f.created[i], nil
		}
	}
	return Request{}, ErrNotFound
}

type recordingPublisher struct {
	tasks []string
}

func (p *recordingPublisher) Publish(_ context.Context, taskType string, _ any) error {
	p.tasks = append(p.tasks, taskType)
	return nil
}

func testService() (*Service, *fakeRepo, *recordingPublisher) {
	repo := &fakeRepo{}
	pub := &recordingPublisher{}
	svc := &Service{
		Repo:   repo,
		Events: pub,
		Now:    func() time.Time { return time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC) },
	}
	return svc, repo, pub
}

func validInput() Input {
	return Input{
		RequesterName:    "Dewi",
		OrgName:          "Komunitas Lari Bandung",
		Whatsapp:         "+62813555777",
		ProductTypes:     []string{"kaos", "hoodie"},
		QuantityEstimate: 40,
	}
}

func TestSubmitStoresPendingRequest(t *testing.T) {
	svc, repo, pub := testService()

	stored, err := svc.Submit(context.Background(), validInput())
	require.NoError(t, err)
	require.Equal(t, StatusPending, stored.Status)
	require.Regexp(t, `^EUY-CR-20250601-\d{4}$`, stored.RequestNumber)
	require.Len(t, repo.created, 1)
	require.Equal(t, []string{events.TaskCustomRequestCreated}, pub.tasks)
}

func TestSubmitHoneypotRejectsSpam(t *testing.T) {
	svc, repo, _ := testService()

	in := validInput()
	in.CompanyWebsite = "http://bot.example"
	_, err := svc.Submit(context.Background(), in)

	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, "SPAM_DETECTED", appErr.Code)
	require.Empty(t, repo.created)
}

func TestSubmitValidation(t *testing.T) {
	svc, _, _ := testService()

	in := Input{QuantityEstimate: 0, ProductTypes: []string{"  "}}
	_, err := svc.Submit(context.Background(), in)

	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, "VALIDATION_ERROR", appErr.Code)
	require.Contains(t, appErr.FieldErrors, "requester_name")
	require.Contains(t, appErr.FieldErrors, "whatsapp")
	require.Contains(t, appErr.FieldErrors, "product_types")
	require.Contains(t, appErr.FieldErrors, "quantity_estimate")
}

func TestSubmitRejectsTooManyFiles(t *testing.T) {
	svc, _, _ := testService()

	in := validInput()
	for i := 0; i < MaxFiles+1; i++ {
		in.Files = append(in.Files, FileMeta{
			Bucket: "design-files", Path: "custom-requests/g/x.png",
			OriginalName: "x.png", MimeType: "image/png", SizeBytes: 100,
		})
	}
	_, err := svc.Submit(context.Background(), in)

	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Contains(t, appErr.FieldErrors, "files")
}

func TestSubmitRejectsIncompleteFileMeta(t *testing.T) {
	svc, _, _ := testService()

	in := validInput()
	in.Files = []FileMeta{{Bucket: "design-files", Path: "", OriginalName: "a.png", MimeType: "image/png", SizeBytes: 0}}
	_, err := svc.Submit(context.Background(), in)

	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Contains(t, appErr.FieldErrors, "files.0.path")
	require.Contains(t, appErr.FieldErrors, "files.0.size_bytes")
}

func TestSubmitParsesDeadline(t *testing.T) {
	svc, repo, _ := testService()

	in := validInput()
	in.DeadlineDate = "2025-07-15"
	_, err := svc.Submit(context.Background(), in)
	require.NoError(t, err)
	require.NotNil(t, repo.created[0].DeadlineDate)
	require.Equal(t, "2025-07-15", repo.created[0].DeadlineDate.Format("2006-01-02"))

	in = validInput()
	in.DeadlineDate = "next week"
	_, err = svc.Submit(context.Background(), in)
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Contains(t, appErr.FieldErrors, "deadline_date")
}

func TestSubmitRetriesOnNumberCollision(t *testing.T) {
	svc, repo, _ := testService()
	repo.failWithDupe = 1

	stored, err := svc.Submit(context.Background(), validInput())
	require.NoError(t, err)
	require.NotEmpty(t, stored.RequestNumber)
	require.Len(t, repo.created, 1)
}

func TestStatusGroups(t *testing.T) {
	require.Equal(t, GroupNew, GroupOf(StatusPending))
	require.Equal(t, GroupInProgress, GroupOf(StatusQuoted))
	require.Equal(t, GroupDone, GroupOf(StatusRejected))

	resolved, ok := ResolveStatusInput("IN_PROGRESS")
	require.True(t, ok)
	require.Equal(t, StatusReviewing, resolved)

	_, ok = ResolveStatusInput("archived")
	require.False(t, ok)
}
