// Package drive reconstructs the hierarchical, filtered filesystem view
// from the flat entity collections: the five fixed sections, the optional
// filter predicates, folder child counts and descendant traversal.
package drive

import (
	"strings"
	"time"

	"github.com/dalemusser/stratadrive/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
)

// Section is one of the five fixed top-level views.
type Section string

const (
	SectionMyDrive Section = "my-drive"
	SectionShared  Section = "shared"
	SectionRecent  Section = "recent"
	SectionStarred Section = "starred"
	SectionTrash   Section = "trash"
)

// RecentWindow is the rolling window for the recent section.
const RecentWindow = 30 * 24 * time.Hour

// ValidSection reports whether s names a known section.
func ValidSection(s Section) bool {
	switch s {
	case SectionMyDrive, SectionShared, SectionRecent, SectionStarred, SectionTrash:
		return true
	}
	return false
}

// Filter holds the optional predicates. Zero-valued fields pass everything
// through; present fields are combined by logical AND.
type Filter struct {
	// Query matches name, description, or any tag, case-insensitive substring.
	Query string
	// Types matches the declared file-type category set.
	Types []string
	// Tags requires a non-empty intersection with the file's tag set.
	Tags []string
	// Owners matches the owner id set.
	Owners []string
	// Starred/Shared require flag equality when set.
	Starred *bool
	Shared  *bool
	// ModifiedAfter/ModifiedBefore bound the modification time.
	ModifiedAfter  *time.Time
	ModifiedBefore *time.Time
}

// MatchFile applies every present predicate to a file.
func (f *Filter) MatchFile(file *models.File) bool {
	return f.match(file.Name, file.Description, file.Tags, file.Type,
		file.OwnerID, file.Starred, file.Shared, file.ModifiedAt)
}

// MatchFolder applies the applicable predicates to a folder. The type-set
// predicate never matches folders, so a type filter hides them.
func (f *Filter) MatchFolder(folder *models.Folder) bool {
	if len(f.Types) > 0 {
		return false
	}
	return f.match(folder.Name, folder.Description, folder.Tags, "",
		folder.OwnerID, folder.Starred, folder.Shared, folder.ModifiedAt)
}

func (f *Filter) match(name, description string, tags []string, fileType, ownerID string, starred, shared bool, modified time.Time) bool {
	if f.Query != "" {
		q := text.Fold(f.Query)
		hit := contains(text.Fold(name), q) || contains(text.Fold(description), q)
		for _, t := range tags {
			if hit {
				break
			}
			hit = contains(text.Fold(t), q)
		}
		if !hit {
			return false
		}
	}
	if len(f.Types) > 0 && !inSet(fileType, f.Types) {
		return false
	}
	if len(f.Tags) > 0 && !intersects(tags, f.Tags) {
		return false
	}
	if len(f.Owners) > 0 && !inSet(ownerID, f.Owners) {
		return false
	}
	if f.Starred != nil && starred != *f.Starred {
		return false
	}
	if f.Shared != nil && shared != *f.Shared {
		return false
	}
	if f.ModifiedAfter != nil && modified.Before(*f.ModifiedAfter) {
		return false
	}
	if f.ModifiedBefore != nil && modified.After(*f.ModifiedBefore) {
		return false
	}
	return true
}

// Params scope one section build.
type Params struct {
	Section Section
	// FolderID scopes my-drive to one folder; empty means root.
	FolderID string
	// ViewerID drives the owner-scoping of my-drive.
	ViewerID string
	// SharedIDs is the resolved grant set for the shared section.
	SharedIDs map[string]struct{}
	// Now anchors the recent window.
	Now    time.Time
	Filter Filter
}

// View is the built section content. Folders are populated for my-drive
// only; the other sections are flat file lists.
type View struct {
	Files       []models.File
	Folders     []models.Folder
	ChildCounts map[string]int
}

// Build assembles one section view from the flat entity sets. Section
// predicates compose with the filter predicates; shared and trash bypass the
// owner scoping of my-drive.
func Build(files []models.File, folders []models.Folder, p Params) View {
	if p.Now.IsZero() {
		p.Now = time.Now()
	}
	v := View{ChildCounts: ChildCounts(files, folders)}

	for i := range files {
		f := &files[i]
		if !sectionMatchesFile(f, p) {
			continue
		}
		if !p.Filter.MatchFile(f) {
			continue
		}
		v.Files = append(v.Files, *f)
	}

	if p.Section == SectionMyDrive {
		for i := range folders {
			fo := &folders[i]
			if fo.Trashed || fo.ParentID != p.FolderID || fo.OwnerID != p.ViewerID {
				continue
			}
			if !p.Filter.MatchFolder(fo) {
				continue
			}
			v.Folders = append(v.Folders, *fo)
		}
	}
	return v
}

func sectionMatchesFile(f *models.File, p Params) bool {
	switch p.Section {
	case SectionTrash:
		return f.Trashed
	case SectionShared:
		if f.Trashed {
			return false
		}
		_, ok := p.SharedIDs[f.ID]
		return ok
	case SectionRecent:
		return !f.Trashed && f.OwnerID == p.ViewerID && p.Now.Sub(f.ModifiedAt) <= RecentWindow
	case SectionStarred:
		return !f.Trashed && f.OwnerID == p.ViewerID && f.Starred
	default: // my-drive
		return !f.Trashed && f.OwnerID == p.ViewerID && f.ParentID == p.FolderID
	}
}

// ChildCounts returns the number of direct, non-trashed children (files and
// folders) per folder id.
func ChildCounts(files []models.File, folders []models.Folder) map[string]int {
	counts := make(map[string]int)
	for i := range files {
		if !files[i].Trashed && files[i].ParentID != "" {
			counts[files[i].ParentID]++
		}
	}
	for i := range folders {
		if !folders[i].Trashed && folders[i].ParentID != "" {
			counts[folders[i].ParentID]++
		}
	}
	return counts
}

// Descendants collects every non-trashed file under the folder, folders
// traversed through but not collected. The adjacency map is built once and
// walked iteratively. Termination assumes the parent links form a tree; a
// cycle introduced by data corruption is not guarded here.
func Descendants(files []models.File, folders []models.Folder, rootID string) []models.File {
	childFolders := make(map[string][]string)
	for i := range folders {
		if folders[i].Trashed {
			continue
		}
		childFolders[folders[i].ParentID] = append(childFolders[folders[i].ParentID], folders[i].ID)
	}
	childFiles := make(map[string][]models.File)
	for i := range files {
		if files[i].Trashed {
			continue
		}
		childFiles[files[i].ParentID] = append(childFiles[files[i].ParentID], files[i])
	}

	var collected []models.File
	stack := []string{rootID}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		collected = append(collected, childFiles[id]...)
		stack = append(stack, childFolders[id]...)
	}
	return collected
}

// Breadcrumb is one frame of the my-drive navigation trail.
type Breadcrumb struct {
	ID   string `json:"id"` // empty id is the root frame
	Name string `json:"name"`
}

// TruncateTrail cuts the trail down to the clicked frame and returns the new
// trail plus the active folder id. Clicking the root frame (empty id) clears
// the trail and resets the folder to root.
func TruncateTrail(trail []Breadcrumb, clickedID string) ([]Breadcrumb, string) {
	if clickedID == "" {
		return nil, ""
	}
	for i := range trail {
		if trail[i].ID == clickedID {
			return trail[:i+1], clickedID
		}
	}
	return trail, clickedID
}

func contains(haystack, needle string) bool {
	return strings.Contains(haystack, needle)
}

func inSet(value string, set []string) bool {
	for _, s := range set {
		if s == value {
			return true
		}
	}
	return false
}

func intersects(a, b []string) bool {
	for _, x := range a {
		for _, y := range b {
			if x == y {
				return true
			}
		}
	}
	return false
}
