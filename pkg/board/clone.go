package board

// Clone returns a deep copy of the board. Mutating the copy never affects the original.
func (b Board) Clone() Board {
	c := b
	if b.Columns != nil {
		c.Columns = append([]string(nil), b.Columns...)
	}
	if b.Groups != nil {
		c.Groups = make([]Group, len(b.Groups))
		for i, g := range b.Groups {
			c.Groups[i] = g.Clone()
		}
	}
	if b.Activities != nil {
		c.Activities = make([]Activity, len(b.Activities))
		for i, a := range b.Activities {
			c.Activities[i] = a.Clone()
		}
	}
	if b.CreatedBy != nil {
		u := b.CreatedBy.Clone()
		c.CreatedBy = &u
	}
	return c
}

// Clone returns a deep copy of the group and its tasks.
func (g Group) Clone() Group {
	c := g
	if g.Tasks != nil {
		c.Tasks = make([]Task, len(g.Tasks))
		for i, t := range g.Tasks {
			c.Tasks[i] = t.Clone()
		}
	}
	return c
}

// Clone returns a deep copy of the task, including nested column values.
func (t Task) Clone() Task {
	c := t
	if t.Columns != nil {
		c.Columns = cloneMap(t.Columns)
	}
	return c
}

// Clone returns a deep copy of the activity.
func (a Activity) Clone() Activity {
	c := a
	c.CreatedBy = a.CreatedBy.Clone()
	if a.Content.LikedBy != nil {
		c.Content.LikedBy = make([]User, len(a.Content.LikedBy))
		for i, u := range a.Content.LikedBy {
			c.Content.LikedBy[i] = u.Clone()
		}
	}
	if a.Content.Extra != nil {
		c.Content.Extra = cloneMap(a.Content.Extra)
	}
	return c
}

// Clone returns a deep copy of the user, including its activity history.
func (u User) Clone() User {
	c := u
	if u.Activities != nil {
		c.Activities = make([]Activity, len(u.Activities))
		for i, a := range u.Activities {
			c.Activities[i] = a.Clone()
		}
	}
	return c
}

// Clone returns a copy of the query.
func (q FilterQuery) Clone() FilterQuery {
	return FilterQuery{Txt: q.Txt}
}

func cloneMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

// cloneValue copies the container shapes produced by JSON and BSON decoding.
// Anything else is treated as an immutable scalar.
func cloneValue(v any) any {
	switch x := v.(type) {
	case map[string]any:
		return cloneMap(x)
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = cloneValue(e)
		}
		return out
	case []string:
		return append([]string(nil), x...)
	default:
		return v
	}
}
