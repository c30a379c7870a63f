package transfer

type FacebookPage struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Username       string `json:"username"`
	Link           string `json:"link"`
	Category       string `json:"category"`
	FanCount       *int64 `json:"fan_count"`
	FollowersCount *int64 `json:"followers_count"`
	Picture        struct {
		Data struct {
			URL string `json:"url"`
		} `json:"data"`
	} `json:"picture"`
}

// FacebookPostResult covers /feed, /photos and /videos responses. Photos
// return both the photo id and the id of the post that carries it.
type FacebookPostResult struct {
	ID     string `json:"id"`
	PostID string `json:"post_id,omitempty"`
}

type FacebookMediaRef struct {
	MediaFbid string `json:"media_fbid"`
}

type FacebookErrorResponse struct {
	Error struct {
		Message      string `json:"message"`
		Type         string `json:"type"`
		Code         int    `json:"code"`
		ErrorSubcode int    `json:"error_subcode"`
		ErrorUserMsg string `json:"error_user_msg"`
		FbtraceID    string `json:"fbtrace_id"`
	} `json:"error"`
}
