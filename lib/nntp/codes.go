package nntp

// Reply codes relied upon.
const (
	ReplyGreet       = 200 // ready, posting allowed
	ReplyGreetNoPost = 201 // ready, posting prohibited
	ReplyGroupOK     = 211 // group selected; also LISTGROUP data follows
	ReplyList        = 215 // list follows
	ReplyHead        = 221 // header follows (also XHDR data)
	ReplyBody        = 222 // body follows
	ReplyStat        = 223 // article exists
	ReplyOver        = 224 // overview data follows
	ReplyPosted      = 240 // article posted
	ReplyAuthed      = 281 // authentication accepted
	ReplyReady       = 340 // send article
	ReplyWantAuth2   = 380 // continuation-style authentication required
	ReplyWantPass    = 381 // password required
	ReplyBroken      = 400 // service discontinued; synthesized on transport failure
	ReplyNoGroup     = 411 // no such group
	ReplyWantAuth    = 480 // authentication required
	ReplyBadCmd      = 500 // command not recognized
	ReplyBadArgs     = 501 // syntax error
)

func wantAuth(code int) bool {
	return code == ReplyWantAuth || code == ReplyWantAuth2
}
