package authclient

type operation string

const (
	opLogin              operation = "login"
	opSignup             operation = "signup"
	opForgotPassword     operation = "forgot_password"
	opResetPassword      operation = "reset_password"
	opVerifyEmail        operation = "verify_email"
	opResendVerification operation = "resend_verification"
	opCurrentUser        operation = "current_user"
	opUpdateProfile      operation = "update_profile"
	opChangePassword     operation = "change_password"
	opLogout             operation = "logout"
)

func (op operation) authenticated() bool {
	switch op {
	case opResendVerification, opCurrentUser, opUpdateProfile, opChangePassword, opLogout:
		return true
	}
	return false
}

func (op operation) tokenFlow() bool {
	return op == opResetPassword || op == opVerifyEmail
}
