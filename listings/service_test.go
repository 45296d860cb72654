package listings_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/jrsteele09/go-marketplace-client/apiclient"
	"github.com/jrsteele09/go-marketplace-client/apierror"
	"github.com/jrsteele09/go-marketplace-client/credentials"
	credentialsrepofake "github.com/jrsteele09/go-marketplace-client/credentials/repofake"
	internalerrors "github.com/jrsteele09/go-marketplace-client/internal/errors"
	"github.com/jrsteele09/go-marketplace-client/internal/fakebackend"
	"github.com/jrsteele09/go-marketplace-client/internal/utils"
	"github.com/jrsteele09/go-marketplace-client/listings"
	"github.com/jrsteele09/go-marketplace-client/refresh"
	"github.com/stretchr/testify/require"
)

type testFixture struct {
	backend    *fakebackend.Backend
	store      *credentials.Store
	service    *listings.Service
	userID     int64
	otherID    int64
	categoryID int64
}

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()

	backend := fakebackend.New()
	t.Cleanup(backend.Close)

	userID := backend.CreateUser("alice", "password123")
	otherID := backend.CreateUser("bob", "password123")
	categoryID := backend.CreateCategory("Electronics")

	access, refreshToken := backend.IssueTokens(userID)
	store := credentials.NewStore(credentialsrepofake.NewFakeCredentialsRepo())
	require.NoError(t, store.Save(context.Background(), credentials.Credentials{
		AccessToken:  access,
		RefreshToken: refreshToken,
		User:         backend.UserJSON(userID),
	}))

	coordinator := refresh.NewCoordinator(store, refresh.NewHTTPRefresher(backend.URL(), backend.Client()))
	dispatcher := apiclient.New(backend.URL(), store, coordinator, apiclient.WithHTTPClient(backend.Client()))

	return &testFixture{
		backend:    backend,
		store:      store,
		service:    listings.NewService(dispatcher),
		userID:     userID,
		otherID:    otherID,
		categoryID: categoryID,
	}
}

func (f *testFixture) draft() listings.Draft {
	return listings.Draft{
		Title:       "Road bike",
		Description: "54cm frame",
		Price:       "250.00",
		CategoryID:  f.categoryID,
		Location:    "Nairobi",
		Images:      []string{"https://img.example.com/1.jpg", "https://img.example.com/2.jpg"},
	}
}

func TestService_CreateGetUpdateDelete(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	created, err := f.service.Create(ctx, f.draft())
	require.NoError(t, err)
	require.Equal(t, "Road bike", created.Title)
	require.Equal(t, "250.00", created.Price)
	require.Equal(t, listings.ConditionGood, created.Condition)
	require.Equal(t, "https://img.example.com/1.jpg", created.PrimaryImage())
	require.Equal(t, f.userID, created.Seller.ID)

	got, err := f.service.Get(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, created.ID, got.ID)
	require.Equal(t, "Electronics", got.Category.Name)

	updated, err := f.service.Update(ctx, created.ID, listings.Update{
		Price:  utils.Ptr("199.99"),
		Images: []string{"https://img.example.com/3.jpg"},
	})
	require.NoError(t, err)
	require.Equal(t, "199.99", updated.Price)
	require.Len(t, updated.Images, 1)
	require.Equal(t, "Road bike", updated.Title)

	require.NoError(t, f.service.Delete(ctx, created.ID))
	_, err = f.service.Get(ctx, created.ID)
	require.Equal(t, http.StatusNotFound, apierror.StatusCode(err))
}

func TestService_CreateValidation(t *testing.T) {
	f := setupTestFixture(t)
	d := f.draft()
	d.Price = "0"

	_, err := f.service.Create(context.Background(), d)
	var ve *apierror.ValidationError
	require.True(t, errors.As(err, &ve))
	require.Equal(t, "price", ve.First().Field)
	require.Equal(t, "price: Price must be greater than 0", apierror.Display(err))
}

func TestService_CreateWithoutTitle(t *testing.T) {
	f := setupTestFixture(t)
	d := f.draft()
	d.Title = "  "

	_, err := f.service.Create(context.Background(), d)
	require.True(t, errors.Is(err, internalerrors.ErrInvalidListing))
	require.Zero(t, f.backend.CountRequests(http.MethodPost, "/listings/"))
}

func TestService_UpdateNestedValidationErrors(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()
	created, err := f.service.Create(ctx, f.draft())
	require.NoError(t, err)

	_, err = f.service.Update(ctx, created.ID, listings.Update{CategoryID: utils.Ptr(int64(999))})
	var ve *apierror.ValidationError
	require.True(t, errors.As(err, &ve))
	require.Equal(t, "category_id", ve.First().Field)
}

func TestService_UpdateSomeoneElsesListing(t *testing.T) {
	f := setupTestFixture(t)
	id := f.backend.CreateListing(f.otherID, f.categoryID, "Not mine", 10)

	_, err := f.service.Update(context.Background(), id, listings.Update{Title: utils.Ptr("Mine now")})
	require.Equal(t, http.StatusForbidden, apierror.StatusCode(err))
	require.Equal(t, "You can only update your own listings.", apierror.Display(err))
}

func TestService_ListFilters(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()
	other := f.backend.CreateCategory("Furniture")
	f.backend.CreateListing(f.otherID, f.categoryID, "Laptop", 900)
	f.backend.CreateListing(f.otherID, f.categoryID, "Phone", 300)
	f.backend.CreateListing(f.otherID, other, "Sofa", 450)

	page, err := f.service.List(ctx, listings.Filter{})
	require.NoError(t, err)
	require.Equal(t, 3, page.Count)
	require.Equal(t, "Sofa", page.Results[0].Title)

	page, err = f.service.List(ctx, listings.Filter{CategoryID: f.categoryID, Ordering: listings.OrderPriceAsc})
	require.NoError(t, err)
	require.Equal(t, 2, page.Count)
	require.Equal(t, "Phone", page.Results[0].Title)

	page, err = f.service.List(ctx, listings.Filter{Search: "lap"})
	require.NoError(t, err)
	require.Len(t, page.Results, 1)

	minPrice := 400.0
	page, err = f.service.List(ctx, listings.Filter{MinPrice: &minPrice})
	require.NoError(t, err)
	require.Equal(t, 2, page.Count)
}

func TestService_ListIsPublic(t *testing.T) {
	f := setupTestFixture(t)
	f.backend.CreateListing(f.otherID, f.categoryID, "Laptop", 900)
	require.NoError(t, f.store.Clear(context.Background()))

	page, err := f.service.List(context.Background(), listings.Filter{})
	require.NoError(t, err)
	require.Len(t, page.Results, 1)

	cats, err := f.service.Categories(context.Background())
	require.NoError(t, err)
	require.Len(t, cats, 1)
	require.Zero(t, f.backend.RefreshCalls())
}

func TestService_Favorites(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()
	id := f.backend.CreateListing(f.otherID, f.categoryID, "Laptop", 900)

	state, err := f.service.ToggleFavorite(ctx, id, false)
	require.NoError(t, err)
	require.True(t, state)

	favs, err := f.service.Favorites(ctx)
	require.NoError(t, err)
	require.Len(t, favs, 1)
	require.Equal(t, id, favs[0].ID)
	require.True(t, favs[0].IsFavorited)

	state, err = f.service.ToggleFavorite(ctx, id, true)
	require.NoError(t, err)
	require.False(t, state)

	favs, err = f.service.Favorites(ctx)
	require.NoError(t, err)
	require.Empty(t, favs)
}

func TestService_FavoritesAreProtected(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()
	f.backend.ExpireAccessTokens()

	_, err := f.service.Favorites(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), f.backend.RefreshCalls())
}

func TestService_MineSimilarReport(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	mine, err := f.service.Create(ctx, f.draft())
	require.NoError(t, err)
	f.backend.CreateListing(f.otherID, f.categoryID, "Helmet", 40)

	own, err := f.service.Mine(ctx)
	require.NoError(t, err)
	require.Len(t, own, 1)
	require.Equal(t, mine.ID, own[0].ID)

	similar, err := f.service.Similar(ctx, mine.ID)
	require.NoError(t, err)
	require.Len(t, similar, 1)
	require.Equal(t, "Helmet", similar[0].Title)

	require.NoError(t, f.service.Report(ctx, similar[0].ID, ""))
}

func TestFilter_Values(t *testing.T) {
	featured := true
	v := listings.Filter{Search: "bike", CategoryID: 3, Featured: &featured, Page: 2}.Values()
	require.Equal(t, "bike", v.Get("search"))
	require.Equal(t, "3", v.Get("category"))
	require.Equal(t, "true", v.Get("is_featured"))
	require.Equal(t, "2", v.Get("page"))
	require.Empty(t, listings.Filter{Page: 1}.Values())
}
