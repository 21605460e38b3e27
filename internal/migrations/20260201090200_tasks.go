package migrations

import "github.com/jmoiron/sqlx"

func init() {
	register("20260201090200", "tasks", tasksUp, tasksDown)
}

func tasksUp(tx *sqlx.Tx) error {
	_, err := tx.Exec(`
        CREATE TABLE IF NOT EXISTS tasks (
            id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
            project_id UUID NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
            parent_task_id UUID REFERENCES tasks(id) ON DELETE CASCADE,
            title VARCHAR(500) NOT NULL,
            description TEXT,
            status VARCHAR(50) NOT NULL DEFAULT 'todo',
            priority VARCHAR(50) NOT NULL DEFAULT 'medium',
            assignee_id UUID REFERENCES users(id) ON DELETE SET NULL,
            creator_id UUID REFERENCES users(id) ON DELETE SET NULL,
            due_date TIMESTAMP WITH TIME ZONE,
            estimated_hours DOUBLE PRECISION,
            actual_hours DOUBLE PRECISION,
            tags TEXT[] NOT NULL DEFAULT '{}',
            created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
            updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
        );
    `)
	if err != nil {
		return err
	}

	_, err = tx.Exec(`
        CREATE TABLE IF NOT EXISTS subtasks (
            id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
            task_id UUID NOT NULL REFERENCES tasks(id) ON DELETE CASCADE,
            title VARCHAR(500) NOT NULL,
            description TEXT,
            assignee_id UUID REFERENCES users(id) ON DELETE SET NULL,
            completed BOOLEAN NOT NULL DEFAULT FALSE,
            checklist JSONB NOT NULL DEFAULT '[]'::jsonb,
            version INTEGER NOT NULL DEFAULT 1,
            created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
            updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
        );
    `)
	if err != nil {
		return err
	}

	_, err = tx.Exec(`
        CREATE INDEX IF NOT EXISTS idx_tasks_project ON tasks(project_id);
        CREATE INDEX IF NOT EXISTS idx_tasks_status ON tasks(status);
        CREATE INDEX IF NOT EXISTS idx_subtasks_task ON subtasks(task_id);
    `)
	return err
}

func tasksDown(tx *sqlx.Tx) error {
	_, err := tx.Exec(`
        DROP TABLE IF EXISTS subtasks;
        DROP TABLE IF EXISTS tasks;
    `)
	return err
}
