package ace

// DefaultSeedLessons are the starting strategies a fresh playbook gets
// before any query runs. They cover the common failure points of
// quantitative reasoning tasks.
var DefaultSeedLessons = []Lesson{
	{Content: "Identify the diagram type first (graph, Venn diagram, histogram, network)", Tags: []string{"diagrams"}},
	{Content: "Extract all numerical values and labels before solving", Tags: []string{"extraction", "numbers"}},
	{Content: "State the explicit goal clearly before starting", Tags: []string{"goal"}},
	{Content: "Show every calculation step with intermediate results", Tags: []string{"calculation", "steps"}},
	{Content: "Verify the final answer matches the question's format and units", Tags: []string{"verification", "units"}},
}

// SeedDefaults inserts the default lessons into the playbook and gives
// each one an initial helpful mark so it survives early pruning. Returns
// the assigned IDs.
func SeedDefaults(pb *Playbook) ([]BulletID, error) {
	return Seed(pb, DefaultSeedLessons)
}

// Seed adds the given lessons as bullets with one helpful use each.
// Seeding goes through the normal delta path, so IDs, epochs, and
// counters behave exactly as for learned bullets.
func Seed(pb *Playbook, lessons []Lesson) ([]BulletID, error) {
	var add Delta
	for _, lesson := range lessons {
		add.Ops = append(add.Ops, AddOp(lesson.Content, lesson.Tags...))
	}

	added := pb.Apply(add)
	if err := added.Err(); err != nil {
		return added.Added, err
	}

	var mark Delta
	for _, id := range added.Added {
		mark.Ops = append(mark.Ops, IncrementHelpfulOp(id))
	}
	marked := pb.Apply(mark)
	return added.Added, marked.Err()
}
