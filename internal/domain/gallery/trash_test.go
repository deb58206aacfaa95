package gallery

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSoftDeletePinnedPhotos(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seedPhotos(t, "p1", "p2", "p3")
	f.seedCategory(t, "tokyo", "p1", "p3")
	f.seedCategory(t, "kyoto", "p2")
	f.seedPins(t,
		HomepagePin{PhotoID: "p1", Slug: "tokyo", Order: 0},
		HomepagePin{PhotoID: "p2", Slug: "kyoto", Order: 1},
	)

	res, err := f.svc.SoftDelete(ctx, []string{"p1", "p2"}, "admin@example.com")
	require.NoError(t, err)
	assert.Equal(t, 2, res.DeletedCount)
	assert.Empty(t, res.NotFoundIDs)
	assert.Equal(t, []DeletedSummary{
		{ID: "p1", Categories: []string{"tokyo"}, WasPinned: true},
		{ID: "p2", Categories: []string{"kyoto"}, WasPinned: true},
	}, res.DeletedPhotos)

	assert.Empty(t, f.homepage(t).SelectedPhotos)

	repo := NewRepository(f.store)
	for _, id := range []string{"p1", "p2"} {
		photo, err := repo.GetPhoto(ctx, id)
		require.NoError(t, err)
		assert.Nil(t, photo, "%s must leave the image store", id)

		trashed, err := repo.GetDeleted(ctx, id)
		require.NoError(t, err)
		require.NotNil(t, trashed)
		assert.True(t, trashed.WasPinned)
		assert.NotEmpty(t, trashed.OriginalCategories)
		assert.Equal(t, "admin@example.com", trashed.DeletedBy)
		assert.True(t, trashed.DeletedAt.Equal(testNow))
	}

	assert.Nil(t, f.category(t, "kyoto"))
	assert.Equal(t, []string{"p3"}, refIDs(f.category(t, "tokyo").Images))
	require.Len(t, f.notifier.changes, 1)
	assert.Equal(t, "soft_delete", f.notifier.changes[0].Operation)
}

func TestSoftDeleteReindexesRemainingPins(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seedPhotos(t, "p1", "p2", "p3", "p4")
	f.seedPins(t,
		HomepagePin{PhotoID: "p1", Order: 0},
		HomepagePin{PhotoID: "p2", Order: 1},
		HomepagePin{PhotoID: "p3", Order: 2},
		HomepagePin{PhotoID: "p4", Order: 3},
	)

	_, err := f.svc.SoftDelete(ctx, []string{"p2"}, "admin")
	require.NoError(t, err)

	home := f.homepage(t)
	assert.Equal(t, []int{0, 1, 2}, pinOrders(home.SelectedPhotos))
	assert.Equal(t, "p1", home.SelectedPhotos[0].PhotoID)
	assert.Equal(t, "p3", home.SelectedPhotos[1].PhotoID)
	assert.Equal(t, "p4", home.SelectedPhotos[2].PhotoID)
}

func TestSoftDeletePartialAndMissing(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seedPhotos(t, "p1")

	res, err := f.svc.SoftDelete(ctx, []string{"p1", "ghost"}, "admin")
	require.NoError(t, err)
	assert.Equal(t, 1, res.DeletedCount)
	assert.Equal(t, []string{"ghost"}, res.NotFoundIDs)

	res, err = f.svc.SoftDelete(ctx, []string{"ghost", "p1"}, "admin")
	assert.ErrorIs(t, err, ErrPhotoNotFound)
	require.NotNil(t, res)
	assert.Equal(t, 0, res.DeletedCount)
	assert.Equal(t, []string{"ghost", "p1"}, res.NotFoundIDs)

	_, err = f.svc.SoftDelete(ctx, nil, "admin")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestSoftDeleteKeepsVariantInTrash(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seedPhotos(t, "p1")

	_, err := f.svc.Categorize(ctx, "p1", "tokyo", VariantSquare, "admin")
	require.NoError(t, err)
	_, err = f.svc.SoftDelete(ctx, []string{"p1"}, "admin")
	require.NoError(t, err)

	trashed, err := NewRepository(f.store).GetDeleted(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, VariantSquare, trashed.Variant)
}

func TestDeleteRestoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seedPhotos(t, "p1", "p2", "p3")
	f.seedCategory(t, "tokyo", "p1", "p2")
	f.seedCategory(t, "kyoto", "p3")
	f.seedPins(t,
		HomepagePin{PhotoID: "p3", Slug: "kyoto", Order: 0},
		HomepagePin{PhotoID: "p1", Slug: "tokyo", Order: 1},
	)

	repo := NewRepository(f.store)
	before, err := repo.GetPhoto(ctx, "p1")
	require.NoError(t, err)

	_, err = f.svc.SoftDelete(ctx, []string{"p1"}, "admin")
	require.NoError(t, err)

	res, err := f.svc.Restore(ctx, []string{"p1"}, RestoreOptions{Categories: true, Pin: true}, "editor")
	require.NoError(t, err)
	assert.Equal(t, 1, res.RestoredCount)
	assert.Equal(t, []RestoredSummary{{ID: "p1", RestoredToCategories: []string{"tokyo"}, RestoredToPin: true}}, res.RestoredPhotos)

	after, err := repo.GetPhoto(ctx, "p1")
	require.NoError(t, err)
	require.NotNil(t, after)
	require.NotNil(t, after.RestoredAt)
	assert.True(t, after.RestoredAt.Equal(testNow))
	assert.Equal(t, "editor", after.RestoredBy)

	after.RestoredAt = nil
	after.RestoredBy = ""
	assert.Equal(t, before.ID, after.ID)
	assert.Equal(t, before.URL, after.URL)
	assert.Equal(t, before.FileName, after.FileName)
	assert.Equal(t, before.FileSize, after.FileSize)
	assert.Equal(t, before.FileType, after.FileType)
	assert.Equal(t, before.UploadedBy, after.UploadedBy)
	assert.True(t, before.UploadedAt.Equal(after.UploadedAt))

	tokyo := f.category(t, "tokyo")
	assert.ElementsMatch(t, []string{"p1", "p2"}, refIDs(tokyo.Images))
	for _, ref := range tokyo.Images {
		if ref.ID == "p1" {
			assert.Equal(t, VariantOriginal, ref.Variant)
		}
	}

	home := f.homepage(t)
	assert.Equal(t, []int{0, 1}, pinOrders(home.SelectedPhotos))
	assert.Equal(t, "p1", home.SelectedPhotos[1].PhotoID, "restored pin goes last")
	assert.Equal(t, "tokyo", home.SelectedPhotos[1].Slug)

	trashed, err := repo.GetDeleted(ctx, "p1")
	require.NoError(t, err)
	assert.Nil(t, trashed)
	assertSingleCategory(t, f.store)
}

func TestRestoreRecreatesDeletedCategory(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seedPhotos(t, "p1")
	f.seedCategory(t, "tokyo", "p1")

	_, err := f.svc.SoftDelete(ctx, []string{"p1"}, "admin")
	require.NoError(t, err)
	assert.Nil(t, f.category(t, "tokyo"))

	_, err = f.svc.Restore(ctx, []string{"p1"}, RestoreOptions{Categories: true, Pin: true}, "admin")
	require.NoError(t, err)

	tokyo := f.category(t, "tokyo")
	require.NotNil(t, tokyo)
	assert.Equal(t, []string{"p1"}, refIDs(tokyo.Images))
}

func TestRestoreDoesNotDuplicateRefs(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seedPhotos(t, "p1", "p2")
	f.seedCategory(t, "tokyo", "p1", "p2")

	_, err := f.svc.SoftDelete(ctx, []string{"p1"}, "admin")
	require.NoError(t, err)

	// Someone put a ref back by hand before the restore.
	tokyo := f.category(t, "tokyo")
	tokyo.Images = append(tokyo.Images, PhotoRef{ID: "p1", URL: "https://cdn.example.com/p1.jpg", Variant: VariantSquare})
	require.NoError(t, f.store.Batch().Set(CollectionCategories, "tokyo", tokyo).Commit(ctx))

	res, err := f.svc.Restore(ctx, []string{"p1"}, RestoreOptions{Categories: true}, "admin")
	require.NoError(t, err)
	assert.Empty(t, res.RestoredPhotos[0].RestoredToCategories)

	tokyo = f.category(t, "tokyo")
	count := 0
	for _, ref := range tokyo.Images {
		if ref.ID == "p1" {
			count++
			assert.Equal(t, VariantSquare, ref.Variant, "existing ref is left alone")
		}
	}
	assert.Equal(t, 1, count)

	res, err = f.svc.Restore(ctx, []string{"p1"}, RestoreOptions{Categories: true}, "admin")
	assert.ErrorIs(t, err, ErrTrashEntryNotFound, "second restore finds nothing in the trash")
	assert.Equal(t, []string{"p1"}, res.NotFoundIDs)
}

func TestRestoreWithoutCategoriesOrPin(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seedPhotos(t, "p1")
	f.seedCategory(t, "tokyo", "p1")
	f.seedPins(t, HomepagePin{PhotoID: "p1", Order: 0})

	_, err := f.svc.SoftDelete(ctx, []string{"p1"}, "admin")
	require.NoError(t, err)

	res, err := f.svc.Restore(ctx, []string{"p1", "ghost"}, RestoreOptions{}, "admin")
	require.NoError(t, err)
	assert.Equal(t, []string{"ghost"}, res.NotFoundIDs)
	assert.False(t, res.RestoredPhotos[0].RestoredToPin)

	assert.Nil(t, f.category(t, "tokyo"))
	assert.Empty(t, f.homepage(t).SelectedPhotos)

	photo, err := NewRepository(f.store).GetPhoto(ctx, "p1")
	require.NoError(t, err)
	assert.NotNil(t, photo)
}

func TestPermanentDeleteReportsMissing(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seedPhotos(t, "p1", "p2", "p3")
	f.seedCategory(t, "tokyo", "p3")

	_, err := f.svc.SoftDelete(ctx, []string{"p1", "p2"}, "admin")
	require.NoError(t, err)

	res, err := f.svc.PermanentDelete(ctx, []string{"p1", "nope", "p2"}, "admin")
	require.NoError(t, err)
	assert.Equal(t, 2, res.DeletedCount)
	assert.Equal(t, []string{"p1", "p2"}, res.DeletedIDs)
	assert.Equal(t, []string{"nope"}, res.NotFoundIDs)

	listing, err := f.svc.ListDeleted(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, listing.Count)
	assert.Equal(t, []string{"p3"}, refIDs(f.category(t, "tokyo").Images), "other stores are untouched")

	res, err = f.svc.PermanentDelete(ctx, []string{"nope"}, "admin")
	assert.ErrorIs(t, err, ErrTrashEntryNotFound)
	assert.Equal(t, []string{"nope"}, res.NotFoundIDs)

	_, err = f.svc.Restore(ctx, []string{"p1"}, RestoreOptions{Categories: true, Pin: true}, "admin")
	assert.ErrorIs(t, err, ErrNotFound, "permanently deleted photos cannot come back")
}

func TestListDeletedNewestFirst(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seedPhotos(t, "p1", "p2")

	_, err := f.svc.SoftDelete(ctx, []string{"p1"}, "admin")
	require.NoError(t, err)
	f.svc.now = func() time.Time { return testNow.Add(time.Hour) }
	_, err = f.svc.SoftDelete(ctx, []string{"p2"}, "admin")
	require.NoError(t, err)

	listing, err := f.svc.ListDeleted(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, listing.Count)
	assert.Equal(t, "p2", listing.Photos[0].ID)
	assert.Equal(t, "p1", listing.Photos[1].ID)
}

func TestPurgeTrashOlderThan(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seedPhotos(t, "old", "fresh")

	_, err := f.svc.SoftDelete(ctx, []string{"old"}, "admin")
	require.NoError(t, err)
	f.svc.now = func() time.Time { return testNow.Add(40 * 24 * time.Hour) }
	_, err = f.svc.SoftDelete(ctx, []string{"fresh"}, "admin")
	require.NoError(t, err)

	res, err := f.svc.PurgeTrashOlderThan(ctx, 30*24*time.Hour, "galleryctl")
	require.NoError(t, err)
	assert.Equal(t, []string{"old"}, res.DeletedIDs)

	res, err = f.svc.PurgeTrashOlderThan(ctx, 30*24*time.Hour, "galleryctl")
	require.NoError(t, err)
	assert.Equal(t, 0, res.DeletedCount)

	_, err = f.svc.PurgeTrashOlderThan(ctx, 0, "galleryctl")
	assert.ErrorIs(t, err, ErrValidation)
}
