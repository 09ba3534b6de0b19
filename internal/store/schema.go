package store

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
    session_id TEXT PRIMARY KEY,
    email TEXT NOT NULL,
    started_at TIMESTAMP NOT NULL,
    total INTEGER NOT NULL,
    successful INTEGER NOT NULL,
    failed INTEGER NOT NULL,
    success_rate REAL NOT NULL
);

CREATE TABLE IF NOT EXISTS applications (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    session_id TEXT NOT NULL,
    job_title TEXT,
    company TEXT,
    status TEXT NOT NULL,
    search_term TEXT,
    job_url TEXT,
    contract_type TEXT,
    remote_type TEXT,
    reason TEXT,
    applied_at TIMESTAMP NOT NULL,
    FOREIGN KEY (session_id) REFERENCES sessions(session_id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS term_counters (
    session_id TEXT NOT NULL,
    search_term TEXT NOT NULL,
    jobs_found INTEGER NOT NULL,
    jobs_submitted INTEGER NOT NULL,
    jobs_already_applied INTEGER NOT NULL,
    jobs_excluded INTEGER NOT NULL,
    jobs_failed INTEGER NOT NULL,
    PRIMARY KEY (session_id, search_term),
    FOREIGN KEY (session_id) REFERENCES sessions(session_id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_applications_session ON applications(session_id);
CREATE INDEX IF NOT EXISTS idx_applications_url ON applications(job_url);
CREATE INDEX IF NOT EXISTS idx_applications_applied_at ON applications(applied_at);
CREATE INDEX IF NOT EXISTS idx_sessions_started_at ON sessions(started_at);
`
