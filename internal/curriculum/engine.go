package curriculum

// Engine answers curriculum questions against one snapshot. Build it per
// request with Store.Engine or NewEngine so every answer in the request sees
// the same data.
type Engine struct {
	snap *Snapshot
}

// NewEngine binds an engine to a snapshot.
func NewEngine(snap *Snapshot) *Engine {
	return &Engine{snap: snap}
}

// Engine returns an engine over the current snapshot.
func (s *Store) Engine() *Engine {
	return NewEngine(s.Snapshot())
}

// Snapshot returns the snapshot the engine reads.
func (e *Engine) Snapshot() *Snapshot {
	return e.snap
}

// BuildGraph returns the validated dependency graph of the snapshot.
func (e *Engine) BuildGraph() (*Graph, error) {
	return e.snap.Graph()
}

// Recommend lists the disciplines the student is eligible to start.
func (e *Engine) Recommend(studentID int64) ([]int64, error) {
	g, st, err := e.snap.StudentView(studentID)
	if err != nil {
		return nil, err
	}
	return Recommend(g, st.Statuses), nil
}

// GraduationPath plans the remaining disciplines towards requiredIDs.
func (e *Engine) GraduationPath(studentID int64, requiredIDs []int64) ([]int64, error) {
	g, st, err := e.snap.StudentView(studentID)
	if err != nil {
		return nil, err
	}
	return GraduationPath(g, st.Statuses, requiredIDs)
}

// StatusOf returns the student's status for a discipline.
func (e *Engine) StatusOf(studentID, disciplineID int64) (Status, error) {
	g, st, err := e.snap.StudentView(studentID)
	if err != nil {
		return "", err
	}
	if !g.Has(disciplineID) {
		return "", &UnknownDisciplineError{IDs: []int64{disciplineID}}
	}
	return st.Statuses.StatusOf(disciplineID), nil
}

// SetStatus validates a status change and returns the student's resulting
// overlay. The snapshot is not modified.
func (e *Engine) SetStatus(studentID, disciplineID int64, to Status, override bool) (Overlay, error) {
	g, st, err := e.snap.StudentView(studentID)
	if err != nil {
		return Overlay{}, err
	}
	return SetStatus(g, st.Statuses, disciplineID, to, override)
}

// Progress returns the layout and statuses for one student.
func (e *Engine) Progress(studentID int64) (Progress, error) {
	g, st, err := e.snap.StudentView(studentID)
	if err != nil {
		return Progress{}, err
	}
	return BuildProgress(g, st.Statuses), nil
}
