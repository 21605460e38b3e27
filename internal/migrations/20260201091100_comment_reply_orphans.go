package migrations

import "github.com/jmoiron/sqlx"

func init() {
	register("20260201091100", "comment_reply_orphans", commentReplyOrphansUp, commentReplyOrphansDown)
}

// Replies outlive their parent and become top level comments.
func commentReplyOrphansUp(tx *sqlx.Tx) error {
	_, err := tx.Exec(`
        ALTER TABLE project_comments DROP CONSTRAINT IF EXISTS project_comments_parent_comment_id_fkey;
        ALTER TABLE project_comments
            ADD CONSTRAINT project_comments_parent_comment_id_fkey
            FOREIGN KEY (parent_comment_id) REFERENCES project_comments(id) ON DELETE SET NULL;
    `)
	return err
}

func commentReplyOrphansDown(tx *sqlx.Tx) error {
	_, err := tx.Exec(`
        ALTER TABLE project_comments DROP CONSTRAINT IF EXISTS project_comments_parent_comment_id_fkey;
        ALTER TABLE project_comments
            ADD CONSTRAINT project_comments_parent_comment_id_fkey
            FOREIGN KEY (parent_comment_id) REFERENCES project_comments(id) ON DELETE CASCADE;
    `)
	return err
}
