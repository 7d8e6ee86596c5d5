package service

import (
	pkgerrors "campus-timetable/backend/pkg/errors"
)

// Actor 已认证的调用方，由身份服务签发的令牌解析而来
type Actor struct {
	UserID        string
	InstitutionID string
	CanEdit       bool // can_edit_timetable
}

// ErrForbidden 无权修改本机构课表。对外不暴露任何细节。
var ErrForbidden = pkgerrors.Forbidden("无权修改课表")

func requireEditor(actor Actor) error {
	if !actor.CanEdit {
		return ErrForbidden
	}
	return nil
}

func strPtr(s string) *string { return &s }
