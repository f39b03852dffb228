package worker

// VideoInfo 是视频转写结果。
type VideoInfo struct {
	VideoID  string `json:"video_id"`
	Title    string `json:"title"`
	Channel  string `json:"channel"`
	Duration int    `json:"duration"`
	Text     string `json:"text"`
}

// NotesRequest 是生成笔记的请求参数。
type NotesRequest struct {
	DocumentID string
	Text       string
	Filename   string
}

// QuizRequest 是生成测验的请求参数。
type QuizRequest struct {
	DocumentID string
	Text       string
	Count      int
}

// QuizItem 是生成服务返回的单道选择题。
type QuizItem struct {
	Question      string `json:"question"`
	OptionA       string `json:"option_a"`
	OptionB       string `json:"option_b"`
	OptionC       string `json:"option_c"`
	OptionD       string `json:"option_d"`
	CorrectAnswer string `json:"correct_answer"`
	Explanation   string `json:"explanation"`
	Difficulty    string `json:"difficulty"`
}

// FlashcardsRequest 是生成闪卡的请求参数。
type FlashcardsRequest struct {
	DocumentID string
	Text       string
	Count      int
}

// FlashcardItem 是生成服务返回的单张闪卡。
type FlashcardItem struct {
	Front    string `json:"front"`
	Back     string `json:"back"`
	Category string `json:"category"`
}

// PodcastRequest 是生成播客的请求参数。
// DurationMinutes 为 nil 时不向生成服务传递时长，由其自行决定。
type PodcastRequest struct {
	DocumentID      string
	Text            string
	DurationMinutes *int
}

// PodcastResult 是播客生成结果，AudioPath 是生成服务本地磁盘上的音频路径。
type PodcastResult struct {
	AudioPath string `json:"audio_path"`
	Script    string `json:"script"`
}

// HistoryMessage 是随问答请求一起发送的一条历史消息。
type HistoryMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest 是文档问答的请求参数。
type ChatRequest struct {
	DocumentID string
	Text       string
	Message    string
	History    []HistoryMessage
}

// 以下为线上传输结构。

type extractTextRequest struct {
	FilePath string `json:"file_path"`
}

type extractTextResponse struct {
	Text string `json:"text"`
}

type extractVideoRequest struct {
	URL string `json:"url"`
}

type notesRequest struct {
	DocumentID  string `json:"document_id"`
	TextContent string `json:"text_content"`
	Filename    string `json:"filename"`
}

type notesResponse struct {
	Notes string `json:"notes"`
}

type quizRequest struct {
	DocumentID   string `json:"document_id"`
	TextContent  string `json:"text_content"`
	NumQuestions int    `json:"num_questions"`
}

type quizResponse struct {
	Questions []QuizItem `json:"questions"`
}

type flashcardsRequest struct {
	DocumentID  string `json:"document_id"`
	TextContent string `json:"text_content"`
	NumCards    int    `json:"num_cards"`
}

type flashcardsResponse struct {
	Flashcards []FlashcardItem `json:"flashcards"`
}

type podcastRequest struct {
	DocumentID      string `json:"document_id"`
	TextContent     string `json:"text_content"`
	DurationMinutes *int   `json:"duration_minutes,omitempty"`
}

type chatRequest struct {
	DocumentID      string           `json:"document_id"`
	DocumentContent string           `json:"document_content"`
	UserMessage     string           `json:"user_message"`
	ChatHistory     []HistoryMessage `json:"chat_history"`
}

type chatResponse struct {
	Response string `json:"response"`
}

type errorResponse struct {
	Detail string `json:"detail"`
}
