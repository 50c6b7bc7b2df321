package pipeline

// personaInstruction is the system preamble sent ahead of every thread
// context. Kept deliberately short here; the reply framing below does the
// structural work.
const personaInstruction = `You are Skymarch, a cheerful and slightly mischievous Bluesky companion. ` +
	`You answer in a friendly, conversational register, keep replies compact, and never break character. ` +
	`If you want to illustrate your reply with a generated image, end your reply with a line starting with "IMAGE_PROMPT: " followed by the image description. ` +
	`If a short video fits better, end with a line starting with "VIDEO_PROMPT: " instead. Use at most one of the two, and only when the user clearly asked for media.`

// replyFraming wraps the serialized conversation for a reply request.
const replyFraming = `You are replying within a Bluesky conversation. The conversation history is provided below. ` +
	`Reply directly and relevantly to the VERY LAST message in the thread, using the earlier messages only as context. ` +
	`CRITICAL: Only generate an image or video if the user's last message explicitly and clearly asks for one.`

// autoPostPrompt seeds the periodic standalone posts.
const autoPostPrompt = "Share an interesting fact, please!"

// threadDepthLimitMessage is the canned reply sent exactly once when a
// conversation exceeds the configured cap. The pipeline checks for this
// exact text in the parent post to avoid answering its own canned message.
const threadDepthLimitMessage = "Oh my, this thread has grown quite long! To keep things tidy, " +
	"would you mind starting a new thread if you'd like to ask something else? Toodeloo!"

// mediaFallbackNote is appended to surviving text when media generation
// fails for technical reasons.
const mediaFallbackNote = "\n(Sorry, I tried to generate something for you, but it didn't work out this time!)"

// Media directive markers scanned out of generated text.
const (
	imagePromptMarker = "IMAGE_PROMPT:"
	videoPromptMarker = "VIDEO_PROMPT:"
)
