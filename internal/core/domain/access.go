package domain

import "fmt"

type Action string

const (
	ActionCreateProject        Action = "create_project"
	ActionAddMember            Action = "add_member"
	ActionActivateProject      Action = "activate_project"
	ActionViewProject          Action = "view_project"
	ActionFillOpeningChecklist Action = "fill_opening_checklist"
	ActionFillDailyChecklist   Action = "fill_daily_checklist"
	ActionReviewChecklist      Action = "review_checklist"
	ActionReportProgress       Action = "report_progress"
	ActionUploadDocument       Action = "upload_document"
	ActionVerifyDocument       Action = "verify_document"
	ActionViewMaterials        Action = "view_materials"
)

// Decision is the outcome of an access check. Reason is set on deny and is
// safe to surface to the caller.
type Decision struct {
	Allowed bool
	Reason  string
}

func allow() Decision { return Decision{Allowed: true} }

func deny(format string, args ...any) Decision {
	return Decision{Allowed: false, Reason: fmt.Sprintf(format, args...)}
}

// CanPerform is the single authorization decision point. It is pure:
// everything it needs arrives as a parameter, so project or membership
// changes are picked up on the next call and the rules are testable
// without any transport or storage.
//
// Rules:
//   - only clients fill checklists; daily checklists additionally require an
//     active project;
//   - a foreman acts on a project only as a member of an active project;
//   - inspectors review approvals and may view any project, nothing else;
//   - admins pass every check.
func CanPerform(action Action, id Identity, project *Project, isMember bool) Decision {
	if id.Role == RoleAdmin {
		return allow()
	}

	switch action {
	case ActionCreateProject:
		if id.Role == RoleClient {
			return allow()
		}
		return deny("only the client role may create projects")

	case ActionAddMember:
		if id.Role != RoleClient {
			return deny("only the client role may manage project members")
		}
		if !isMember {
			return deny("user is not a member of the project")
		}
		return allow()

	case ActionActivateProject:
		if id.Role != RoleClient {
			return deny("only the client role may activate a project")
		}
		if !isMember {
			return deny("user is not a member of the project")
		}
		return allow()

	case ActionViewProject:
		if id.Role == RoleInspector {
			return allow()
		}
		if !isMember {
			return deny("user is not a member of the project")
		}
		return allow()

	case ActionFillOpeningChecklist:
		if id.Role != RoleClient {
			return deny("only the client role may fill checklists")
		}
		if !isMember {
			return deny("user is not a member of the project")
		}
		return allow()

	case ActionFillDailyChecklist:
		if id.Role != RoleClient {
			return deny("only the client role may fill checklists")
		}
		if !isMember {
			return deny("user is not a member of the project")
		}
		if project == nil || project.Status != ProjectActive {
			return deny("daily checklists require an active project")
		}
		return allow()

	case ActionReviewChecklist:
		if id.Role != RoleInspector {
			return deny("only the inspector role may review checklists")
		}
		return allow()

	case ActionReportProgress, ActionUploadDocument, ActionVerifyDocument:
		if id.Role != RoleForeman {
			return deny("only the foreman role may perform %s", action)
		}
		if !isMember {
			return deny("user is not a member of the project")
		}
		if project == nil || project.Status != ProjectActive {
			return deny("project must be active")
		}
		return allow()

	case ActionViewMaterials:
		if id.Role == RoleInspector {
			return allow()
		}
		if !isMember {
			return deny("user is not a member of the project")
		}
		return allow()

	default:
		return deny("unknown action %s", action)
	}
}
