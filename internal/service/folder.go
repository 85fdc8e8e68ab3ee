package service

import (
	"SkyVault/internal/repo"
	"SkyVault/model"
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"gorm.io/gorm"
)

// SubtreeFilter selects which lifecycle states a subtree walk descends into.
type SubtreeFilter int

const (
	FilterActive SubtreeFilter = iota
	FilterTrashed
	FilterAny
)

func (f SubtreeFilter) matches(isDeleted bool) bool {
	switch f {
	case FilterActive:
		return !isDeleted
	case FilterTrashed:
		return isDeleted
	default:
		return true
	}
}

func getFolder(db *gorm.DB, userID, folderID uint64) (*model.Folder, error) {
	var folder model.Folder
	if err := db.Where("id = ? AND user_id = ?", folderID, userID).First(&folder).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("folder %d: %w", folderID, ErrNotFound)
		}
		return nil, err
	}
	return &folder, nil
}

// CreateFolder creates a folder under parentID (nil = root).
func CreateFolder(userID uint64, parentID *uint64, name string) (*model.Folder, error) {
	if name == "" {
		return nil, fmt.Errorf("folder name empty: %w", ErrInvalidArgument)
	}
	var folder *model.Folder
	err := repo.Db.Transaction(func(tx *gorm.DB) error {
		if parentID != nil && *parentID != 0 {
			parent, err := getFolder(tx, userID, *parentID)
			if err != nil {
				return err
			}
			if parent.IsDeleted {
				return fmt.Errorf("parent folder is trashed: %w", ErrPreconditionFailed)
			}
		}
		if err := checkFolderNameFree(tx, userID, parentID, name, 0); err != nil {
			return err
		}
		folder = &model.Folder{
			UserID:   userID,
			ParentID: normalizeParentID(parentID),
			Name:     name,
		}
		return tx.Create(folder).Error
	})
	if err != nil {
		return nil, err
	}
	return folder, nil
}

func normalizeParentID(parentID *uint64) *uint64 {
	if parentID == nil || *parentID == 0 {
		return nil
	}
	return parentID
}

func checkFolderNameFree(tx *gorm.DB, userID uint64, parentID *uint64, name string, excludeID uint64) error {
	var count int64
	query := tx.Model(&model.Folder{}).
		Where("user_id = ? AND name = ? AND is_deleted = 0 AND id != ?", userID, name, excludeID)
	if parentID == nil || *parentID == 0 {
		query = query.Where("parent_id IS NULL")
	} else {
		query = query.Where("parent_id = ?", *parentID)
	}
	if err := query.Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return fmt.Errorf("folder %q already exists here: %w", name, ErrConflict)
	}
	return nil
}

// RenameFolder renames an active folder.
func RenameFolder(userID, folderID uint64, newName string) error {
	if newName == "" {
		return fmt.Errorf("folder name empty: %w", ErrInvalidArgument)
	}
	return repo.Db.Transaction(func(tx *gorm.DB) error {
		folder, err := getFolder(tx, userID, folderID)
		if err != nil {
			return err
		}
		if folder.IsDeleted {
			return fmt.Errorf("folder %d is trashed: %w", folderID, ErrPreconditionFailed)
		}
		if err := checkFolderNameFree(tx, userID, folder.ParentID, newName, folderID); err != nil {
			return err
		}
		return tx.Model(folder).Update("name", newName).Error
	})
}

// IsDescendant walks candidate's parent chain and reports whether ancestorID
// is on it. Iterative with a visited set, so a corrupted chain cannot loop.
func IsDescendant(db *gorm.DB, userID, ancestorID, candidateID uint64) (bool, error) {
	visited := make(map[uint64]struct{})
	current := candidateID
	for {
		if _, seen := visited[current]; seen {
			return false, nil
		}
		visited[current] = struct{}{}

		var folder model.Folder
		if err := db.Where("id = ? AND user_id = ?", current, userID).First(&folder).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return false, nil
			}
			return false, err
		}
		if folder.ParentID == nil {
			return false, nil
		}
		if *folder.ParentID == ancestorID {
			return true, nil
		}
		current = *folder.ParentID
	}
}

// CollectSubtreeFolderIDs gathers rootID plus all descendant folder ids that
// match the filter. Breadth-first over an explicit work queue; descent stops
// at folders the filter excludes.
func CollectSubtreeFolderIDs(db *gorm.DB, userID, rootID uint64, filter SubtreeFilter) ([]uint64, error) {
	root, err := getFolder(db, userID, rootID)
	if err != nil {
		return nil, err
	}
	if !filter.matches(root.IsDeleted) {
		return nil, nil
	}

	collected := []uint64{rootID}
	queue := []uint64{rootID}
	for len(queue) > 0 {
		batch := queue
		queue = nil

		var children []model.Folder
		if err := db.Where("user_id = ? AND parent_id IN ?", userID, batch).Find(&children).Error; err != nil {
			return nil, err
		}
		for _, child := range children {
			if !filter.matches(child.IsDeleted) {
				continue
			}
			collected = append(collected, child.ID)
			queue = append(queue, child.ID)
		}
	}
	return collected, nil
}

// MoveFolder re-parents a folder. Moving a folder into itself or its own
// subtree would cut a cycle into the tree and is rejected.
func MoveFolder(userID, folderID uint64, newParentID *uint64) error {
	newParentID = normalizeParentID(newParentID)
	return repo.Db.Transaction(func(tx *gorm.DB) error {
		folder, err := getFolder(tx, userID, folderID)
		if err != nil {
			return err
		}
		if folder.IsDeleted {
			return fmt.Errorf("folder %d is trashed: %w", folderID, ErrPreconditionFailed)
		}
		if newParentID != nil {
			if *newParentID == folderID {
				return fmt.Errorf("folder cannot be its own parent: %w", ErrInvalidArgument)
			}
			target, err := getFolder(tx, userID, *newParentID)
			if err != nil {
				return err
			}
			if target.IsDeleted {
				return fmt.Errorf("target folder is trashed: %w", ErrPreconditionFailed)
			}
			descendant, err := IsDescendant(tx, userID, folderID, *newParentID)
			if err != nil {
				return err
			}
			if descendant {
				return fmt.Errorf("cannot move folder into its own subtree: %w", ErrInvalidArgument)
			}
		}
		if err := checkFolderNameFree(tx, userID, newParentID, folder.Name, folderID); err != nil {
			return err
		}
		return tx.Model(folder).Update("parent_id", newParentID).Error
	})
}

// CascadeTrash soft-deletes a folder with its active subtree and every
// active asset in it. Bytes stay charged while the subtree is recoverable.
func CascadeTrash(userID, folderID uint64) error {
	now := time.Now()
	return repo.Db.Transaction(func(tx *gorm.DB) error {
		folder, err := getFolder(tx, userID, folderID)
		if err != nil {
			return err
		}
		if folder.IsDeleted {
			return fmt.Errorf("folder %d already trashed: %w", folderID, ErrPreconditionFailed)
		}
		ids, err := CollectSubtreeFolderIDs(tx, userID, folderID, FilterActive)
		if err != nil {
			return err
		}
		if err := tx.Model(&model.Asset{}).
			Where("user_id = ? AND folder_id IN ? AND is_deleted = 0", userID, ids).
			Updates(map[string]interface{}{
				"is_deleted": true,
				"deleted_at": &now,
			}).Error; err != nil {
			return err
		}
		return tx.Model(&model.Folder{}).
			Where("user_id = ? AND id IN ? AND is_deleted = 0", userID, ids).
			Updates(map[string]interface{}{
				"is_deleted": true,
				"deleted_at": &now,
			}).Error
	})
}

// CascadeRestore brings a trashed folder subtree back. The immediate parent
// must be active (or the folder must sit at root); otherwise the caller has
// to restore the parent first or move the folder to root.
func CascadeRestore(userID, folderID uint64) error {
	return repo.Db.Transaction(func(tx *gorm.DB) error {
		folder, err := getFolder(tx, userID, folderID)
		if err != nil {
			return err
		}
		if !folder.IsDeleted {
			return fmt.Errorf("folder %d is not trashed: %w", folderID, ErrPreconditionFailed)
		}
		if folder.ParentID != nil {
			parent, err := getFolder(tx, userID, *folder.ParentID)
			if err != nil {
				return err
			}
			if parent.IsDeleted {
				return fmt.Errorf("parent folder is trashed, restore it first: %w", ErrPreconditionFailed)
			}
		}
		// An active sibling may have taken the name while this subtree sat
		// in the trash.
		if err := checkFolderNameFree(tx, userID, folder.ParentID, folder.Name, folderID); err != nil {
			return err
		}
		ids, err := CollectSubtreeFolderIDs(tx, userID, folderID, FilterTrashed)
		if err != nil {
			return err
		}
		if err := tx.Model(&model.Asset{}).
			Where("user_id = ? AND folder_id IN ? AND is_deleted = 1", userID, ids).
			Updates(map[string]interface{}{
				"is_deleted": false,
				"deleted_at": nil,
			}).Error; err != nil {
			return err
		}
		return tx.Model(&model.Folder{}).
			Where("user_id = ? AND id IN ? AND is_deleted = 1", userID, ids).
			Updates(map[string]interface{}{
				"is_deleted": false,
				"deleted_at": nil,
			}).Error
	})
}

// cascadePurgeTx removes a folder subtree for good: every asset releases its
// content reference, then folder rows go deepest-first so the parent foreign
// key never dangles. Returns freed bytes and the blobs to delete post-commit.
func cascadePurgeTx(tx *gorm.DB, userID, folderID uint64) (int64, []BlobRef, error) {
	ids, err := CollectSubtreeFolderIDs(tx, userID, folderID, FilterAny)
	if err != nil {
		return 0, nil, err
	}

	var assets []model.Asset
	if err := tx.Where("user_id = ? AND folder_id IN ?", userID, ids).Find(&assets).Error; err != nil {
		return 0, nil, err
	}
	freed, blobs, err := purgeAssetsTx(tx, assets)
	if err != nil {
		return 0, nil, err
	}

	ordered, err := foldersDeepestFirst(tx, userID, ids)
	if err != nil {
		return 0, nil, err
	}
	for _, id := range ordered {
		if err := tx.Where("user_id = ? AND id = ?", userID, id).Delete(&model.Folder{}).Error; err != nil {
			return 0, nil, err
		}
	}
	return freed, blobs, nil
}

// CascadePurge permanently deletes a folder subtree and refunds the freed
// bytes. One transaction; blob deletes run after it commits.
func CascadePurge(ctx context.Context, userID, folderID uint64) (int64, error) {
	var (
		freed int64
		blobs []BlobRef
	)
	err := repo.Db.Transaction(func(tx *gorm.DB) error {
		if _, err := getFolder(tx, userID, folderID); err != nil {
			return err
		}
		var err error
		freed, blobs, err = cascadePurgeTx(tx, userID, folderID)
		if err != nil {
			return err
		}
		return AdjustUsage(tx, userID, -freed)
	})
	if err != nil {
		return 0, err
	}
	DeleteBlobs(ctx, blobs)
	return freed, nil
}

// foldersDeepestFirst ranks folder ids by parent-chain depth, deepest first.
// Depth is computed iteratively against the in-memory id set.
func foldersDeepestFirst(tx *gorm.DB, userID uint64, ids []uint64) ([]uint64, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var folders []model.Folder
	if err := tx.Where("user_id = ? AND id IN ?", userID, ids).Find(&folders).Error; err != nil {
		return nil, err
	}
	parents := make(map[uint64]*uint64, len(folders))
	for _, f := range folders {
		parents[f.ID] = f.ParentID
	}
	depths := make(map[uint64]int, len(folders))
	for id := range parents {
		depth := 0
		current := id
		for {
			parent, ok := parents[current]
			if !ok || parent == nil {
				break
			}
			if _, inSet := parents[*parent]; !inSet {
				break
			}
			depth++
			current = *parent
			if depth > len(parents) {
				break
			}
		}
		depths[id] = depth
	}
	ordered := make([]uint64, 0, len(depths))
	for id := range depths {
		ordered = append(ordered, id)
	}
	sort.Slice(ordered, func(i, j int) bool {
		if depths[ordered[i]] != depths[ordered[j]] {
			return depths[ordered[i]] > depths[ordered[j]]
		}
		return ordered[i] > ordered[j]
	})
	return ordered, nil
}

// ListFolders returns a user's active folders under parentID.
func ListFolders(userID uint64, parentID *uint64) ([]model.Folder, error) {
	var folders []model.Folder
	query := repo.Db.Where("user_id = ? AND is_deleted = 0", userID)
	if parentID == nil || *parentID == 0 {
		query = query.Where("parent_id IS NULL")
	} else {
		query = query.Where("parent_id = ?", *parentID)
	}
	err := query.Order("name ASC").Find(&folders).Error
	return folders, err
}

// EmptyTrash purges everything in the user's trash: directly trashed assets
// plus every trashed folder subtree, folders deleted in depth order.
func EmptyTrash(ctx context.Context, userID uint64) (int64, error) {
	var (
		freed int64
		blobs []BlobRef
	)
	err := repo.Db.Transaction(func(tx *gorm.DB) error {
		var assets []model.Asset
		if err := tx.Where("user_id = ? AND is_deleted = 1", userID).Find(&assets).Error; err != nil {
			return err
		}
		var trashedFolders []model.Folder
		if err := tx.Where("user_id = ? AND is_deleted = 1", userID).Find(&trashedFolders).Error; err != nil {
			return err
		}
		// Assets inside trashed folders that were not trashed themselves
		// (edge state after a crashed cascade) go too.
		folderIDs := make([]uint64, 0, len(trashedFolders))
		for _, f := range trashedFolders {
			folderIDs = append(folderIDs, f.ID)
		}
		if len(folderIDs) > 0 {
			var stragglers []model.Asset
			if err := tx.Where("user_id = ? AND is_deleted = 0 AND folder_id IN ?", userID, folderIDs).
				Find(&stragglers).Error; err != nil {
				return err
			}
			assets = append(assets, stragglers...)
		}

		var err error
		freed, blobs, err = purgeAssetsTx(tx, assets)
		if err != nil {
			return err
		}

		ordered, err := foldersDeepestFirst(tx, userID, folderIDs)
		if err != nil {
			return err
		}
		for _, id := range ordered {
			if err := tx.Where("user_id = ? AND id = ?", userID, id).Delete(&model.Folder{}).Error; err != nil {
				return err
			}
		}
		return AdjustUsage(tx, userID, -freed)
	})
	if err != nil {
		return 0, err
	}
	DeleteBlobs(ctx, blobs)
	return freed, nil
}
