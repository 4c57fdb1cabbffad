package convert

import (
	"fmt"
	"time"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/and161185/taskdex/internal/container"
	"github.com/and161185/taskdex/internal/model"
	"github.com/and161185/taskdex/internal/progression"
	"github.com/and161185/taskdex/internal/service"
)

// --- Task ---

func taskMap(t model.Task) map[string]any {
	return map[string]any{
		"id":         t.ID.String(),
		"title":      t.Title,
		"completed":  t.Completed,
		"priority":   string(t.Priority),
		"xp_reward":  t.XPReward,
		"created_at": stamp(t.CreatedAt),
	}
}

func taskFrom(f fields) (model.Task, error) {
	id, err := f.uuid("id")
	if err != nil {
		return model.Task{}, err
	}
	created, err := f.time("created_at")
	if err != nil {
		return model.Task{}, err
	}
	return model.Task{
		ID:        id,
		Title:     f.str("title"),
		Completed: f.boolean("completed"),
		Priority:  model.Priority(f.str("priority")),
		XPReward:  f.int("xp_reward"),
		CreatedAt: created,
	}, nil
}

// TaskToStruct wraps a single task as {"task": {...}}.
func TaskToStruct(t model.Task) (*structpb.Struct, error) {
	return toStruct(map[string]any{"task": taskMap(t)})
}

// TaskFromStruct reads {"task": {...}}.
func TaskFromStruct(s *structpb.Struct) (model.Task, error) {
	return taskFrom(fieldsOf(s).sub("task"))
}

// TasksToStruct wraps tasks as {"tasks": [...]}.
func TasksToStruct(ts []model.Task) (*structpb.Struct, error) {
	list := make([]any, 0, len(ts))
	for _, t := range ts {
		list = append(list, taskMap(t))
	}
	return toStruct(map[string]any{"tasks": list})
}

// TasksFromStruct reads {"tasks": [...]}.
func TasksFromStruct(s *structpb.Struct) ([]model.Task, error) {
	var out []model.Task
	for i, f := range fieldsOf(s).list("tasks") {
		t, err := taskFrom(f)
		if err != nil {
			return nil, fmt.Errorf("tasks[%d]: %w", i, err)
		}
		out = append(out, t)
	}
	return out, nil
}

// --- Stats ---

func statsMap(st model.ProgressionStats) map[string]any {
	m := map[string]any{
		"level":      st.Level,
		"current_xp": st.CurrentXP,
		"total_xp":   st.TotalXP,
		"streak":     st.Streak,
		"updated_at": stamp(st.UpdatedAt),
	}
	if st.LastCompletionDate != nil {
		m["last_completion_date"] = st.LastCompletionDate.Format(dateLayout)
	}
	return m
}

func statsFrom(f fields) (model.ProgressionStats, error) {
	st := model.ProgressionStats{
		Level:     f.int("level"),
		CurrentXP: f.int("current_xp"),
		TotalXP:   f.int("total_xp"),
		Streak:    f.int("streak"),
	}
	if d := f.str("last_completion_date"); d != "" {
		t, err := time.Parse(dateLayout, d)
		if err != nil {
			return model.ProgressionStats{}, fmt.Errorf("field %q: %w", "last_completion_date", err)
		}
		st.LastCompletionDate = &t
	}
	var err error
	st.UpdatedAt, err = f.time("updated_at")
	return st, err
}

// ProgressToStruct encodes a progress snapshot.
func ProgressToStruct(p service.Progress) (*structpb.Struct, error) {
	return toStruct(map[string]any{
		"stats":        statsMap(p.Stats),
		"xp_per_level": p.XPPerLevel,
		"xp_to_next":   p.XPToNext,
	})
}

// ProgressFromStruct decodes a progress snapshot.
func ProgressFromStruct(s *structpb.Struct) (service.Progress, error) {
	f := fieldsOf(s)
	st, err := statsFrom(f.sub("stats"))
	if err != nil {
		return service.Progress{}, err
	}
	return service.Progress{Stats: st, XPPerLevel: f.int("xp_per_level"), XPToNext: f.int("xp_to_next")}, nil
}

// --- Toggle ---

// ToggleToStruct encodes a toggle result; "gain" is present only when XP was credited.
func ToggleToStruct(r service.ToggleResult) (*structpb.Struct, error) {
	m := map[string]any{"task": taskMap(r.Task)}
	if r.Gain != nil {
		m["gain"] = map[string]any{
			"xp":           r.Gain.XP,
			"level_before": r.Gain.LevelBefore,
			"level_after":  r.Gain.LevelAfter,
			"leveled_up":   r.Gain.LeveledUp,
			"stats":        statsMap(r.Gain.Stats),
		}
	}
	return toStruct(m)
}

// ToggleFromStruct decodes a toggle result.
func ToggleFromStruct(s *structpb.Struct) (service.ToggleResult, error) {
	f := fieldsOf(s)
	t, err := taskFrom(f.sub("task"))
	if err != nil {
		return service.ToggleResult{}, err
	}
	res := service.ToggleResult{Task: t}
	if f.has("gain") {
		g := f.sub("gain")
		st, err := statsFrom(g.sub("stats"))
		if err != nil {
			return service.ToggleResult{}, err
		}
		res.Gain = &progression.GainResult{
			Stats:       st,
			XP:          g.int("xp"),
			LevelBefore: g.int("level_before"),
			LevelAfter:  g.int("level_after"),
			LeveledUp:   g.boolean("leveled_up"),
		}
	}
	return res, nil
}

// --- Items ---

func itemMap(it model.CollectibleItem) map[string]any {
	return map[string]any{
		"id":             it.ID.String(),
		"external_id":    it.ExternalID,
		"name":           it.Name,
		"image_ref":      it.ImageRef,
		"rarity":         string(it.Rarity),
		"container_type": it.ContainerType,
		"acquired_at":    stamp(it.AcquiredAt),
	}
}

func itemFrom(f fields) (model.CollectibleItem, error) {
	id, err := f.uuid("id")
	if err != nil {
		return model.CollectibleItem{}, err
	}
	at, err := f.time("acquired_at")
	if err != nil {
		return model.CollectibleItem{}, err
	}
	return model.CollectibleItem{
		ID:            id,
		ExternalID:    f.int("external_id"),
		Name:          f.str("name"),
		ImageRef:      f.str("image_ref"),
		Rarity:        model.Rarity(f.str("rarity")),
		ContainerType: f.str("container_type"),
		AcquiredAt:    at,
	}, nil
}

// ItemsToStruct wraps items as {"items": [...]}.
func ItemsToStruct(items []model.CollectibleItem) (*structpb.Struct, error) {
	list := make([]any, 0, len(items))
	for _, it := range items {
		list = append(list, itemMap(it))
	}
	return toStruct(map[string]any{"items": list})
}

// ItemsFromStruct reads {"items": [...]}.
func ItemsFromStruct(s *structpb.Struct) ([]model.CollectibleItem, error) {
	var out []model.CollectibleItem
	for i, f := range fieldsOf(s).list("items") {
		it, err := itemFrom(f)
		if err != nil {
			return nil, fmt.Errorf("items[%d]: %w", i, err)
		}
		out = append(out, it)
	}
	return out, nil
}

// SummaryToStruct encodes a collection summary.
func SummaryToStruct(sum model.CollectionSummary) (*structpb.Struct, error) {
	by := make(map[string]any, len(sum.ByRarity))
	for _, r := range model.Rarities() {
		by[string(r)] = sum.ByRarity[r]
	}
	return toStruct(map[string]any{"total": sum.Total, "distinct": sum.Distinct, "by_rarity": by})
}

// SummaryFromStruct decodes a collection summary.
func SummaryFromStruct(s *structpb.Struct) model.CollectionSummary {
	f := fieldsOf(s)
	by := f.sub("by_rarity")
	sum := model.CollectionSummary{
		Total:    f.int("total"),
		Distinct: f.int("distinct"),
		ByRarity: make(map[model.Rarity]int, 3),
	}
	for _, r := range model.Rarities() {
		sum.ByRarity[r] = by.int(string(r))
	}
	return sum
}

// --- Offers and redemption ---

func eligibilityMap(e container.Eligibility) map[string]any {
	return map[string]any{
		"cost":           e.Cost,
		"affordable":     e.Affordable,
		"level_met":      e.LevelMet,
		"required_level": e.RequiredLevel,
		"shortfall":      e.Shortfall,
		"eligible":       e.OK(),
		"reason":         e.Reason(),
	}
}

func eligibilityFrom(f fields) container.Eligibility {
	return container.Eligibility{
		Cost:          f.int("cost"),
		Affordable:    f.boolean("affordable"),
		LevelMet:      f.boolean("level_met"),
		RequiredLevel: f.int("required_level"),
		Shortfall:     f.int("shortfall"),
	}
}

// OffersToStruct wraps offers as {"offers": [...]}.
func OffersToStruct(offers []service.Offer) (*structpb.Struct, error) {
	list := make([]any, 0, len(offers))
	for _, o := range offers {
		m := eligibilityMap(o.Eligibility)
		m["kind"] = string(o.Type.Kind)
		m["name"] = o.Type.Name
		m["weights"] = map[string]any{
			string(model.RarityCommon):    o.Type.Weights.Common,
			string(model.RarityRare):      o.Type.Weights.Rare,
			string(model.RarityLegendary): o.Type.Weights.Legendary,
		}
		list = append(list, m)
	}
	return toStruct(map[string]any{"offers": list})
}

// OffersFromStruct reads {"offers": [...]}.
func OffersFromStruct(s *structpb.Struct) []service.Offer {
	var out []service.Offer
	for _, f := range fieldsOf(s).list("offers") {
		w := f.sub("weights")
		weight := func(r model.Rarity) float64 {
			v, _ := w[string(r)].(float64)
			return v
		}
		el := eligibilityFrom(f)
		out = append(out, service.Offer{
			Type: container.Type{
				Kind:     container.Kind(f.str("kind")),
				Name:     f.str("name"),
				MinLevel: el.RequiredLevel,
				Weights: model.RarityWeights{
					Common:    weight(model.RarityCommon),
					Rare:      weight(model.RarityRare),
					Legendary: weight(model.RarityLegendary),
				},
			},
			Eligibility: el,
		})
	}
	return out
}

// RedeemToStruct encodes a redemption outcome.
func RedeemToStruct(o service.RedeemOutcome) (*structpb.Struct, error) {
	m := map[string]any{
		"rejected":    o.Rejected,
		"reason":      o.Reason,
		"eligibility": eligibilityMap(o.Eligibility),
		"stats":       statsMap(o.Stats),
	}
	if o.Item != nil {
		m["item"] = itemMap(*o.Item)
	}
	return toStruct(m)
}

// RedeemFromStruct decodes a redemption outcome.
func RedeemFromStruct(s *structpb.Struct) (service.RedeemOutcome, error) {
	f := fieldsOf(s)
	st, err := statsFrom(f.sub("stats"))
	if err != nil {
		return service.RedeemOutcome{}, err
	}
	out := service.RedeemOutcome{
		Rejected:    f.boolean("rejected"),
		Reason:      f.str("reason"),
		Eligibility: eligibilityFrom(f.sub("eligibility")),
		Stats:       st,
	}
	if f.has("item") {
		it, err := itemFrom(f.sub("item"))
		if err != nil {
			return service.RedeemOutcome{}, err
		}
		out.Item = &it
	}
	return out, nil
}
