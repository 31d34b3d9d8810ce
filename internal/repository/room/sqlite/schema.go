package sqlite

const schemaVideoStates = `
CREATE TABLE IF NOT EXISTS video_states (
	room_id TEXT NOT NULL PRIMARY KEY,
	video_id TEXT,
	video_title TEXT,
	video_thumbnail TEXT,
	current_time_sec REAL NOT NULL CHECK (current_time_sec >= 0),
	is_playing INTEGER NOT NULL,
	playback_rate REAL NOT NULL CHECK (playback_rate >= 0.25 AND playback_rate <= 2.0),
	last_updated INTEGER NOT NULL,
	version INTEGER NOT NULL CHECK (version >= 1)
);`

const schemaRoomMembers = `
CREATE TABLE IF NOT EXISTS room_members (
	room_id TEXT NOT NULL,
	user_id TEXT NOT NULL,
	role TEXT NOT NULL CHECK (role IN ('HOST', 'MODERATOR', 'MEMBER')),
	PRIMARY KEY (room_id, user_id)
);`

func (r *repo) EnsureSchema() error {
	for _, stmt := range []string{schemaVideoStates, schemaRoomMembers} {
		if _, err := r.db.Exec(stmt); err != nil {
			return err
		}
	}

	return nil
}
