package transfer

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nhle/taskcheck/internal/model"
)

const entityLegacy = "legacy"

// DecodeLegacy reads the older format: a JSON array of categories with their
// items and completion flags inlined. It is never guessed from content; the
// caller chooses it explicitly.
func DecodeLegacy(r io.Reader) ([]model.LegacyCategory, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading legacy data: %w", err)
	}

	var cats []model.LegacyCategory
	if err := json.Unmarshal(data, &cats); err != nil {
		vErr := fileError(err)
		if strings.HasPrefix(vErr.Reason, "expected a JSON object") {
			vErr.Reason = "expected a JSON array of categories"
		}
		vErr.Entity = entityLegacy
		return nil, vErr
	}
	if cats == nil {
		return nil, invalid(entityLegacy, -1, "", "expected a JSON array of categories")
	}

	for i, c := range cats {
		if strings.TrimSpace(c.Name) == "" {
			return nil, invalid(entityLegacy, i, "name", "is required")
		}
		for j, it := range c.Items {
			if strings.TrimSpace(it.Title) == "" {
				return nil, invalid(entityLegacy, i, fmt.Sprintf("items[%d].title", j), "is required")
			}
		}
	}
	return cats, nil
}

// ConvertLegacy maps legacy categories onto the relational graph. Each
// legacy category becomes a category whose items are its templates, plus one
// task of the same name carrying the recorded completion state. Legacy ids are
// reused where present; duplicate item titles within a category collapse into
// one template, done if any of them was.
func ConvertLegacy(cats []model.LegacyCategory, now time.Time) model.Snapshot {
	snap := model.Snapshot{}
	for _, lc := range cats {
		catID := orNewID(lc.ID)
		name := strings.TrimSpace(lc.Name)
		snap.Categories = append(snap.Categories, model.Category{
			ID: catID, Name: name, CreatedAt: now, UpdatedAt: now,
		})

		taskID := uuid.NewSHA1(uuid.NameSpaceOID, []byte("taskcheck/legacy/"+catID)).String()
		snap.Tasks = append(snap.Tasks, model.Task{
			ID: taskID, CategoryID: catID, Name: name, CreatedAt: now, UpdatedAt: now,
		})

		checks := make(map[string]int)
		for _, it := range lc.Items {
			title := strings.TrimSpace(it.Title)
			if idx, ok := checks[title]; ok {
				snap.TaskChecks[idx].IsDone = snap.TaskChecks[idx].IsDone || it.Completed
				continue
			}

			itemID := orNewID(it.ID)
			cid := catID
			snap.CheckItems = append(snap.CheckItems, model.CheckItem{
				ID:           itemID,
				CategoryID:   &cid,
				Name:         title,
				SortPosition: len(checks),
				CreatedAt:    now,
				UpdatedAt:    now,
			})
			snap.TaskChecks = append(snap.TaskChecks, model.TaskCheck{
				ID:           uuid.New().String(),
				TaskID:       taskID,
				CheckItemID:  itemID,
				IsDone:       it.Completed,
				SortPosition: len(checks),
				CreatedAt:    now,
				UpdatedAt:    now,
			})
			checks[title] = len(snap.TaskChecks) - 1
		}
	}
	return snap.Clone()
}

func orNewID(id string) string {
	if strings.TrimSpace(id) == "" {
		return uuid.New().String()
	}
	return id
}
