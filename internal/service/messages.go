package service

// User-facing notices. They are shown as-is by the UI.
const (
	MsgLoginRequired      = "ログインしてから投稿してね🥺"
	MsgPostFailed         = "投稿に失敗しちゃった…😭"
	MsgPostTooLong        = "140文字までだよ🥺"
	MsgLoginFieldsMissing = "メールとパスワードを入れてね🥺"
	MsgRegisterMissing    = "必須項目が空だよ🥺"
	MsgAlreadyRegistered  = "このメールは登録済みだよ。ログインしてね。"
	MsgRegistered         = "アカウント作成できたよ💚 ログインしてね！"
	MsgBackendUnavailable = "通信に失敗しちゃった…😭"

	// Shown in the header in place of a display name when nobody is logged in.
	MsgNotLoggedIn = "未ログイン"
)
