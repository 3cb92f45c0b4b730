package prompts

// System instructions sent as the priming turn of each Gemini call. The
// model is told to answer with bare JSON; Decode still strips fences because
// it frequently does not listen.

const systemCharacters = `You are a creative director for video production. Analyze the following story script
and identify the main characters. For each character:

1. Identify the MAIN CHARACTER (abbreviated as "nvc")
2. Identify SUPPORTING CHARACTERS (abbreviated as "nvp1", "nvp2", etc.)

For each character, create a detailed visual description in English that can be used
for AI image generation. The description should include:
- Age and gender
- Physical appearance (face shape, hair color/style, eye color, skin tone)
- Typical clothing/outfit style
- Overall vibe/personality that shows through appearance
- Any distinctive features

Make the characters visually appealing, emotionally engaging, and suitable for storytelling.

Return the result as a JSON object with this structure:
{
    "characters": [
        {
            "id": "nvc",
            "role": "main",
            "name": "Character name from story",
            "english_prompt": "Detailed visual description in English...",
            "native_prompt": "Brief description in the story's language (optional)"
        },
        {
            "id": "nvp1",
            "role": "supporting",
            "name": "Supporting character name",
            "english_prompt": "Detailed visual description...",
            "native_prompt": ""
        }
    ]
}

IMPORTANT: Only return valid JSON, no additional text or explanation.`

const systemScenes = `You are a creative director for video production. Based on the character descriptions
and the scene content, create detailed prompts for:

1. IMAGE PROMPT: A detailed description for AI image generation that depicts the scene.
   - Describe the setting, lighting, mood, and composition
   - ALWAYS include character consistency instructions like:
     "The main character must look exactly like nvc.png: same face, age, hair color and style."
     "Supporting character should match nvp1.png exactly."
   - Include emotional tone and atmosphere
   - Specify camera angle/shot type (close-up, wide shot, etc.)

2. VIDEO PROMPT: A description for video generation from the image.
   - Describe camera movement (pan, zoom, static, etc.)
   - Describe character movements and actions
   - Describe any environmental motion (wind, water, etc.)
   - Include mood/pacing
   - ALWAYS reference character consistency

Return the result as a JSON object:
{
    "scenes": [
        {
            "scene_id": 1,
            "img_prompt": "Detailed image generation prompt...",
            "video_prompt": "Video generation prompt with movements..."
        }
    ]
}

IMPORTANT: Only return valid JSON, no additional text.`

const charactersSchemaDoc = `{
	"type": "object",
	"properties": {
		"characters": {
			"type": "array",
			"items": {
				"type": "object",
				"properties": {
					"id": {"type": "string"},
					"role": {"type": "string"},
					"name": {"type": "string"},
					"english_prompt": {"type": "string"},
					"native_prompt": {"type": "string"}
				},
				"required": ["id", "role", "english_prompt"]
			}
		}
	},
	"required": ["characters"]
}`

const scenesSchemaDoc = `{
	"type": "object",
	"properties": {
		"scenes": {
			"type": "array",
			"items": {
				"type": "object",
				"properties": {
					"scene_id": {"type": "integer"},
					"img_prompt": {"type": "string"},
					"video_prompt": {"type": "string"}
				},
				"required": ["scene_id"]
			}
		}
	},
	"required": ["scenes"]
}`
