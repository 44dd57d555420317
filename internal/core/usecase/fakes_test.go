package usecase

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/KoTeHok22/locus/internal/core/domain"
	"github.com/KoTeHok22/locus/internal/core/ports"
)

type projectRepoFake struct {
	mu       sync.Mutex
	projects map[string]*domain.Project
	statuses []domain.ProjectStatus
	pending  []bool
}

func newProjectRepoFake(projects ...*domain.Project) *projectRepoFake {
	f := &projectRepoFake{projects: map[string]*domain.Project{}}
	for _, p := range projects {
		f.projects[p.ID] = p
	}
	return f
}

func (f *projectRepoFake) Create(_ context.Context, p *domain.Project, creator domain.Member) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.projects {
		if existing.Name == p.Name {
			return domain.WrapError(domain.ErrConflict, "insert project", errors.New("duplicate name"))
		}
	}
	cp := *p
	cp.Members = []domain.Member{creator}
	f.projects[p.ID] = &cp
	return nil
}

func (f *projectRepoFake) GetByID(_ context.Context, id string) (*domain.Project, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.projects[id]
	if !ok {
		return nil, domain.WrapError(domain.ErrNotFound, "fetch project", errors.New(id))
	}
	cp := *p
	return &cp, nil
}

func (f *projectRepoFake) List(_ context.Context, userID string) ([]domain.Project, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Project
	for _, p := range f.projects {
		if p.HasMember(userID) {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (f *projectRepoFake) ListAll(_ context.Context) ([]domain.Project, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Project
	for _, p := range f.projects {
		out = append(out, *p)
	}
	return out, nil
}

func (f *projectRepoFake) AddMember(_ context.Context, projectID string, m domain.Member) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.projects[projectID]
	if !ok {
		return domain.WrapError(domain.ErrNotFound, "fetch project", errors.New(projectID))
	}
	p.Members = append(p.Members, m)
	return nil
}

func (f *projectRepoFake) IsMember(_ context.Context, projectID, userID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.projects[projectID]
	if !ok {
		return false, nil
	}
	return p.HasMember(userID), nil
}

func (f *projectRepoFake) SetStatus(_ context.Context, projectID string, status domain.ProjectStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statuses = append(f.statuses, status)
	if p, ok := f.projects[projectID]; ok {
		p.Status = status
	}
	return nil
}

func (f *projectRepoFake) SetPendingChecklist(_ context.Context, projectID string, pending bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pending = append(f.pending, pending)
	if p, ok := f.projects[projectID]; ok {
		p.HasPendingChecklist = pending
	}
	return nil
}

type checklistRepoFake struct {
	templates   map[string]*domain.ChecklistTemplate
	completions map[string]*domain.ChecklistCompletion
	created     int
	updated     int
}

func newChecklistRepoFake(templates ...*domain.ChecklistTemplate) *checklistRepoFake {
	f := &checklistRepoFake{
		templates:   map[string]*domain.ChecklistTemplate{},
		completions: map[string]*domain.ChecklistCompletion{},
	}
	for _, tpl := range templates {
		f.templates[tpl.ID] = tpl
	}
	return f
}

func (f *checklistRepoFake) UpsertTemplate(_ context.Context, tpl *domain.ChecklistTemplate) error {
	f.templates[tpl.ID] = tpl
	return nil
}

func (f *checklistRepoFake) ListTemplates(context.Context) ([]domain.ChecklistTemplate, error) {
	var out []domain.ChecklistTemplate
	for _, tpl := range f.templates {
		out = append(out, *tpl)
	}
	return out, nil
}

func (f *checklistRepoFake) GetTemplate(_ context.Context, id string) (*domain.ChecklistTemplate, error) {
	tpl, ok := f.templates[id]
	if !ok {
		return nil, domain.WrapError(domain.ErrNotFound, "fetch template", errors.New(id))
	}
	return tpl, nil
}

func (f *checklistRepoFake) CreateCompletion(_ context.Context, c *domain.ChecklistCompletion) error {
	cp := *c
	f.completions[c.ID] = &cp
	f.created++
	return nil
}

func (f *checklistRepoFake) UpdateCompletion(_ context.Context, c *domain.ChecklistCompletion) error {
	cp := *c
	f.completions[c.ID] = &cp
	f.updated++
	return nil
}

func (f *checklistRepoFake) GetCompletion(_ context.Context, id string) (*domain.ChecklistCompletion, error) {
	c, ok := f.completions[id]
	if !ok {
		return nil, domain.WrapError(domain.ErrNotFound, "fetch completion", errors.New(id))
	}
	cp := *c
	return &cp, nil
}

func (f *checklistRepoFake) GetCompletionForDate(_ context.Context, projectID, templateID string, day time.Time) (*domain.ChecklistCompletion, error) {
	y, m, d := day.UTC().Date()
	for _, c := range f.completions {
		cy, cm, cd := c.CompletionDate.UTC().Date()
		if c.ProjectID == projectID && c.TemplateID == templateID && cy == y && cm == m && cd == d {
			cp := *c
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *checklistRepoFake) PendingOpeningCompletion(_ context.Context, projectID string) (*domain.ChecklistCompletion, error) {
	for _, c := range f.completions {
		tpl := f.templates[c.TemplateID]
		if tpl != nil && tpl.Type == domain.ChecklistOpening && c.ProjectID == projectID &&
			c.ApprovalStatus == domain.ApprovalPending {
			cp := *c
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *checklistRepoFake) LatestOpeningCompletion(_ context.Context, projectID string) (*domain.ChecklistCompletion, error) {
	var latest *domain.ChecklistCompletion
	for _, c := range f.completions {
		tpl := f.templates[c.TemplateID]
		if tpl == nil || tpl.Type != domain.ChecklistOpening || c.ProjectID != projectID {
			continue
		}
		if latest == nil || c.CompletionDate.After(latest.CompletionDate) {
			latest = c
		}
	}
	if latest == nil {
		return nil, nil
	}
	cp := *latest
	return &cp, nil
}

func (f *checklistRepoFake) History(_ context.Context, projectID string, t domain.ChecklistType) ([]domain.ChecklistCompletion, error) {
	var out []domain.ChecklistCompletion
	for _, c := range f.completions {
		tpl := f.templates[c.TemplateID]
		if tpl != nil && tpl.Type == t && c.ProjectID == projectID {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (f *checklistRepoFake) SetApproval(_ context.Context, completionID string, status domain.ApprovalStatus, approvedBy, reason, attachedDocument string, at time.Time) error {
	c, ok := f.completions[completionID]
	if !ok {
		return domain.WrapError(domain.ErrNotFound, "fetch completion", errors.New(completionID))
	}
	c.ApprovalStatus = status
	c.ApprovedByID = approvedBy
	c.ApprovedAt = &at
	c.RejectionReason = reason
	c.AttachedDocument = attachedDocument
	return nil
}

type ledgerRepoFake struct {
	mu        sync.Mutex
	items     map[string]*domain.WorkPlanItem
	delivered map[string]float64 // workItemID|materialID
	consumed  map[string]float64
	materials map[string]domain.Material
	progress  []float64
}

func newLedgerRepoFake(items ...*domain.WorkPlanItem) *ledgerRepoFake {
	f := &ledgerRepoFake{
		items:     map[string]*domain.WorkPlanItem{},
		delivered: map[string]float64{},
		consumed:  map[string]float64{},
		materials: map[string]domain.Material{},
	}
	for _, item := range items {
		f.items[item.ID] = item
	}
	return f
}

func ledgerKey(workItemID, materialID string) string { return workItemID + "|" + materialID }

func (f *ledgerRepoFake) deliver(workItemID, materialID string, qty float64) {
	f.delivered[ledgerKey(workItemID, materialID)] += qty
}

func (f *ledgerRepoFake) ReportConsumption(_ context.Context, workItemID, foremanID string, lines []domain.ConsumptionLine, epsilon float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	requested := make(map[string]float64, len(lines))
	for _, line := range lines {
		requested[ledgerKey(workItemID, line.MaterialID)] += line.QuantityUsed
	}
	for _, line := range lines {
		key := ledgerKey(workItemID, line.MaterialID)
		available := f.delivered[key] - f.consumed[key]
		if requested[key]-available > epsilon {
			return &domain.InsufficientMaterialError{
				MaterialID: line.MaterialID,
				Requested:  requested[key],
				Available:  available,
			}
		}
	}
	for _, line := range lines {
		f.consumed[ledgerKey(workItemID, line.MaterialID)] += line.QuantityUsed
	}
	return nil
}

func (f *ledgerRepoFake) AvailableMaterials(_ context.Context, workItemID string) ([]domain.AvailableMaterial, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.AvailableMaterial
	for key, delivered := range f.delivered {
		remaining := delivered - f.consumed[key]
		if remaining > 0 {
			out = append(out, domain.AvailableMaterial{AvailableQuantity: remaining})
		}
	}
	return out, nil
}

func (f *ledgerRepoFake) ProjectBalance(context.Context, string) ([]domain.MaterialBalance, error) {
	return nil, nil
}

func (f *ledgerRepoFake) GetWorkItem(_ context.Context, id string) (*domain.WorkPlanItem, error) {
	item, ok := f.items[id]
	if !ok {
		return nil, domain.WrapError(domain.ErrNotFound, "fetch work item", errors.New(id))
	}
	cp := *item
	return &cp, nil
}

func (f *ledgerRepoFake) ListWorkItems(_ context.Context, projectID string, status domain.WorkItemStatus) ([]domain.WorkPlanItem, error) {
	var out []domain.WorkPlanItem
	for _, item := range f.items {
		if item.ProjectID != projectID {
			continue
		}
		if status != "" && item.Status != status {
			continue
		}
		out = append(out, *item)
	}
	return out, nil
}

func (f *ledgerRepoFake) UpdateProgress(_ context.Context, workItemID string, progress float64, status domain.WorkItemStatus) error {
	f.progress = append(f.progress, progress)
	if item, ok := f.items[workItemID]; ok {
		item.Progress = progress
		item.Status = status
	}
	return nil
}

type documentRepoFake struct {
	mu          sync.Mutex
	docs        map[string]*domain.DeliveryDocument
	statusCalls []domain.RecognitionStatus
	deliveries  int
	getErr      error
}

func newDocumentRepoFake(docs ...*domain.DeliveryDocument) *documentRepoFake {
	f := &documentRepoFake{docs: map[string]*domain.DeliveryDocument{}}
	for _, d := range docs {
		f.docs[d.ID] = d
	}
	return f
}

func (f *documentRepoFake) Create(_ context.Context, doc *domain.DeliveryDocument) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *doc
	f.docs[doc.ID] = &cp
	return nil
}

func (f *documentRepoFake) GetByID(_ context.Context, id string) (*domain.DeliveryDocument, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	doc, ok := f.docs[id]
	if !ok {
		return nil, domain.WrapError(domain.ErrNotFound, "fetch document", errors.New(id))
	}
	cp := *doc
	return &cp, nil
}

func (f *documentRepoFake) UpdateStatus(_ context.Context, id string, status domain.RecognitionStatus, errMessage string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statusCalls = append(f.statusCalls, status)
	if doc, ok := f.docs[id]; ok {
		doc.Status = status
		doc.Error = errMessage
	}
	return nil
}

func (f *documentRepoFake) SaveRecognized(_ context.Context, id string, data *domain.RecognizedData) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if doc, ok := f.docs[id]; ok {
		doc.Recognized = data
	}
	return nil
}

func (f *documentRepoFake) VerifyAndRecordDeliveries(_ context.Context, documentID, projectID, verifierID string, items []domain.RecognizedItem, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, ok := f.docs[documentID]
	if !ok {
		return domain.WrapError(domain.ErrNotFound, "fetch document", errors.New(documentID))
	}
	if doc.Verified {
		return domain.WrapError(domain.ErrConflict, "verify document", errors.New("already verified"))
	}
	doc.Verified = true
	doc.VerifiedByID = verifierID
	doc.VerifiedAt = &at
	f.deliveries += len(items)
	return nil
}

type userDirectoryFake struct {
	byEmail map[string]*domain.Identity
}

func (f *userDirectoryFake) IdentityByToken(context.Context, string) (*domain.Identity, error) {
	return nil, domain.WrapError(domain.ErrUnauthorized, "resolve token", errors.New("unknown token"))
}

func (f *userDirectoryFake) IdentityByEmail(_ context.Context, email string) (*domain.Identity, error) {
	id, ok := f.byEmail[email]
	if !ok {
		return nil, domain.WrapError(domain.ErrNotFound, "resolve user", errors.New(email))
	}
	return id, nil
}

type geocoderFake struct {
	location domain.Coordinates
	err      error
}

func (f *geocoderFake) Geocode(context.Context, string) (domain.Coordinates, error) {
	if f.err != nil {
		return domain.Coordinates{}, f.err
	}
	return f.location, nil
}

type storageFake struct {
	saved []string
	err   error
}

func (f *storageFake) Save(_ context.Context, key string, _ io.Reader) error {
	if f.err != nil {
		return f.err
	}
	f.saved = append(f.saved, key)
	return nil
}

func (f *storageFake) Open(context.Context, string) (io.ReadCloser, error) {
	return nil, errors.New("not implemented")
}

type queueFake struct {
	published []string
	err       error
}

func (f *queueFake) PublishDocumentUploaded(_ context.Context, documentID string) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, documentID)
	return nil
}

func (f *queueFake) SubscribeDocumentUploaded(context.Context, func(context.Context, string) error) error {
	return nil
}

type extractorFake struct {
	input ports.RecognitionInput
	err   error
}

func (f *extractorFake) Extract(context.Context, *domain.DeliveryDocument) (ports.RecognitionInput, error) {
	if f.err != nil {
		return ports.RecognitionInput{}, f.err
	}
	return f.input, nil
}

type recognizerFake struct {
	data *domain.RecognizedData
	err  error
}

func (f *recognizerFake) Recognize(context.Context, ports.RecognitionInput) (*domain.RecognizedData, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.data, nil
}
