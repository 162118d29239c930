package store

// schema holds every table of the session replica. All rows except
// sessions carry auth_id; queries must never cross session boundaries.
//
// Tables:
//   - sessions       - one row per named session; value is the serialized
//     credential/key-material blob
//   - contacts       - contact fields, patch-merged on upsert
//   - chats          - conversation summaries with unread counters
//   - message_dics   - per-conversation message dictionaries
//   - messages       - message rows; the AUTOINCREMENT id is the only
//     chronological total order
//   - presence_dics  - per-conversation presence dictionaries
//   - presences      - last-known presence per participant
//   - groups         - group metadata with a JSON participant roster
const schema = `
CREATE TABLE IF NOT EXISTS sessions (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    key TEXT NOT NULL UNIQUE,
    value TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS contacts (
    db_id INTEGER PRIMARY KEY AUTOINCREMENT,
    auth_id INTEGER NOT NULL,
    id TEXT NOT NULL,
    name TEXT,
    notify TEXT,
    verified_name TEXT,
    img_url TEXT,
    status TEXT,
    UNIQUE(id, auth_id),
    FOREIGN KEY (auth_id) REFERENCES sessions(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS chats (
    db_id INTEGER PRIMARY KEY AUTOINCREMENT,
    auth_id INTEGER NOT NULL,
    id TEXT NOT NULL,
    conversation_timestamp INTEGER,
    unread_count INTEGER NOT NULL DEFAULT 0,
    UNIQUE(id, auth_id),
    FOREIGN KEY (auth_id) REFERENCES sessions(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS message_dics (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    auth_id INTEGER NOT NULL,
    jid TEXT NOT NULL,
    UNIQUE(jid, auth_id),
    FOREIGN KEY (auth_id) REFERENCES sessions(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS messages (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    dictionary_id INTEGER NOT NULL,
    msg_id TEXT NOT NULL,
    from_me INTEGER NOT NULL DEFAULT 0,
    participant TEXT,
    push_name TEXT,
    timestamp INTEGER,
    status INTEGER,
    content TEXT,
    receipts TEXT,
    reactions TEXT,
    UNIQUE(msg_id, dictionary_id),
    FOREIGN KEY (dictionary_id) REFERENCES message_dics(id)
);
CREATE INDEX IF NOT EXISTS idx_messages_dictionary ON messages(dictionary_id, id);

CREATE TABLE IF NOT EXISTS presence_dics (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    auth_id INTEGER NOT NULL,
    chat_id TEXT NOT NULL,
    UNIQUE(chat_id, auth_id),
    FOREIGN KEY (auth_id) REFERENCES sessions(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS presences (
    db_id INTEGER PRIMARY KEY AUTOINCREMENT,
    dictionary_id INTEGER NOT NULL,
    participant TEXT NOT NULL,
    last_known_presence TEXT,
    last_seen INTEGER,
    UNIQUE(dictionary_id, participant),
    FOREIGN KEY (dictionary_id) REFERENCES presence_dics(id)
);

CREATE TABLE IF NOT EXISTS groups (
    db_id INTEGER PRIMARY KEY AUTOINCREMENT,
    auth_id INTEGER NOT NULL,
    id TEXT NOT NULL,
    subject TEXT NOT NULL DEFAULT '',
    subject_owner TEXT,
    subject_time INTEGER,
    owner TEXT,
    creation INTEGER,
    description TEXT,
    desc_owner TEXT,
    restrict_mode INTEGER,
    announce INTEGER,
    size INTEGER,
    participants TEXT,
    ephemeral_duration INTEGER,
    invite_code TEXT,
    UNIQUE(id, auth_id),
    FOREIGN KEY (auth_id) REFERENCES sessions(id) ON DELETE CASCADE
);
`
