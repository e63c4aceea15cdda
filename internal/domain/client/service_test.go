package client

import (
	"context"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fakturo/internal/core/apperror"
	"fakturo/internal/core/id"
	"fakturo/internal/domain/invoice"
)

// passthroughTxManager runs the function directly; catalog tests exercise
// business rules, not rollback mechanics.
type passthroughTxManager struct{}

func (passthroughTxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type fakeClientRepo struct {
	byID map[id.ID]*Client
}

func newFakeClientRepo() *fakeClientRepo {
	return &fakeClientRepo{byID: make(map[id.ID]*Client)}
}

func (r *fakeClientRepo) Insert(ctx context.Context, c *Client) error {
	cp := *c
	r.byID[c.ID] = &cp
	return nil
}

func (r *fakeClientRepo) GetByID(ctx context.Context, clientID id.ID) (*Client, error) {
	c, ok := r.byID[clientID]
	if !ok {
		return nil, apperror.NewNotFound("client", clientID)
	}
	cp := *c
	return &cp, nil
}

func (r *fakeClientRepo) GetByNickname(ctx context.Context, nickname string) (*Client, error) {
	for _, c := range r.byID {
		if c.Nickname == nickname {
			cp := *c
			return &cp, nil
		}
	}
	return nil, apperror.NewNotFound("client", nickname)
}

func (r *fakeClientRepo) List(ctx context.Context) ([]*Client, error) {
	out := make([]*Client, 0, len(r.byID))
	for _, c := range r.byID {
		cp := *c
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Nickname < out[j].Nickname })
	return out, nil
}

func (r *fakeClientRepo) Update(ctx context.Context, c *Client) error {
	if _, ok := r.byID[c.ID]; !ok {
		return apperror.NewNotFound("client", c.ID)
	}
	cp := *c
	r.byID[c.ID] = &cp
	return nil
}

func (r *fakeClientRepo) Delete(ctx context.Context, clientID id.ID) error {
	if _, ok := r.byID[clientID]; !ok {
		return apperror.NewNotFound("client", clientID)
	}
	delete(r.byID, clientID)
	return nil
}

var _ Repository = (*fakeClientRepo)(nil)

func newTestService() (*Service, *fakeClientRepo) {
	repo := newFakeClientRepo()
	return NewService(repo, passthroughTxManager{}), repo
}

func billing(name string) invoice.Address {
	return invoice.Address{Name: name, Street: "Langer Weg 2", City: "Hamburg", PostalCode: "20095"}
}

func TestService_Create(t *testing.T) {
	svc, repo := newTestService()

	created, err := svc.Create(context.Background(), "acme", billing("ACME Corp"))
	require.NoError(t, err)
	assert.False(t, id.IsNil(created.ID))
	assert.Equal(t, "acme", created.Nickname)
	assert.Len(t, repo.byID, 1)
}

func TestService_Create_RejectsTakenNickname(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.Create(context.Background(), "acme", billing("ACME Corp"))
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), "acme", billing("Other Corp"))
	require.Error(t, err)
	assert.True(t, apperror.IsDuplicate(err))
}

func TestService_Create_Validates(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.Create(context.Background(), "", billing("ACME Corp"))
	require.Error(t, err)

	_, err = svc.Create(context.Background(), "acme", invoice.Address{})
	require.Error(t, err)
}

func TestService_Resolve(t *testing.T) {
	svc, _ := newTestService()

	created, err := svc.Create(context.Background(), "acme", billing("ACME Corp"))
	require.NoError(t, err)

	got, err := svc.Resolve(context.Background(), "acme")
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, "ACME Corp", got.Billing.Name)

	_, err = svc.Resolve(context.Background(), "ghost")
	require.Error(t, err)
	assert.True(t, apperror.IsNotFound(err))
}

func TestService_Update(t *testing.T) {
	svc, _ := newTestService()

	created, err := svc.Create(context.Background(), "acme", billing("ACME Corp"))
	require.NoError(t, err)

	updated, err := svc.Update(context.Background(), created.ID, "acme-gmbh", billing("ACME GmbH"))
	require.NoError(t, err)
	assert.Equal(t, "acme-gmbh", updated.Nickname)
	assert.Equal(t, "ACME GmbH", updated.Billing.Name)

	got, err := svc.Get(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, "acme-gmbh", got.Nickname)
}

func TestService_Update_KeepingOwnNicknameIsFine(t *testing.T) {
	svc, _ := newTestService()

	created, err := svc.Create(context.Background(), "acme", billing("ACME Corp"))
	require.NoError(t, err)

	_, err = svc.Update(context.Background(), created.ID, "acme", billing("ACME Corp, renamed"))
	require.NoError(t, err)
}

func TestService_Update_RejectsNicknameOfOtherClient(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.Create(context.Background(), "acme", billing("ACME Corp"))
	require.NoError(t, err)
	second, err := svc.Create(context.Background(), "umbrella", billing("Umbrella Inc"))
	require.NoError(t, err)

	_, err = svc.Update(context.Background(), second.ID, "acme", billing("Umbrella Inc"))
	require.Error(t, err)
	assert.True(t, apperror.IsDuplicate(err))
}

func TestService_List(t *testing.T) {
	svc, _ := newTestService()

	for _, nick := range []string{"umbrella", "acme", "initech"} {
		_, err := svc.Create(context.Background(), nick, billing(nick+" inc"))
		require.NoError(t, err)
	}

	clients, err := svc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, clients, 3)
	assert.Equal(t, "acme", clients[0].Nickname)
	assert.Equal(t, "initech", clients[1].Nickname)
	assert.Equal(t, "umbrella", clients[2].Nickname)
}

func TestService_Delete(t *testing.T) {
	svc, repo := newTestService()

	created, err := svc.Create(context.Background(), "acme", billing("ACME Corp"))
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), created.ID))
	assert.Empty(t, repo.byID)

	err = svc.Delete(context.Background(), created.ID)
	require.Error(t, err)
	assert.True(t, apperror.IsNotFound(err))
}

func TestClient_Validate(t *testing.T) {
	c := NewClient("acme", billing("ACME Corp"))
	require.NoError(t, c.Validate())

	c.Nickname = "   "
	require.Error(t, c.Validate())

	c = NewClient(string(make([]byte, 101)), billing("ACME Corp"))
	require.Error(t, c.Validate())

	c = NewClient("acme", invoice.Address{})
	require.Error(t, c.Validate())
}
